package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/config"
	"github.com/localhub/server/internal/domain/users"
	"github.com/localhub/server/internal/storage/postgres"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	userName     string
	userEmail    string
	userPassword string
	userAdmin    bool
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long: `Create a user account directly in the database.

This is the only way to create an admin account besides the ADMIN_*
bootstrap variables; the HTTP API only registers regular users.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.LoadDatabase(configPath)
			if err != nil {
				return err
			}
			svc, pool, err := openUserService(cmd.Context(), db)
			if err != nil {
				return err
			}
			defer pool.Close()

			role := auth.RoleUser
			if userAdmin {
				role = auth.RoleAdmin
			}
			user, err := svc.CreateWithRole(cmd.Context(), users.RegisterParams{
				Name:     userName,
				Email:    userEmail,
				Password: userPassword,
			}, role)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&userName, "name", "", "display name")
	create.Flags().StringVar(&userEmail, "email", "", "login email")
	create.Flags().StringVar(&userPassword, "password", "", "password (at least 8 characters)")
	create.Flags().BoolVar(&userAdmin, "admin", false, "grant the admin role")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

// openUserService connects to the database and returns a users service over
// it. The caller closes the pool.
func openUserService(ctx context.Context, db config.DatabaseConfig) (*users.Service, *pgxpool.Pool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := postgres.Connect(ctx, db.URL, db.MaxConnections)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create repository: %w", err)
	}
	return users.NewService(repo.Users(), zerolog.Nop()), pool, nil
}
