package cmd

import (
	"fmt"
	"time"

	"github.com/localhub/server/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUserID string
	tokenExpiry time.Duration
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an existing user",
		Long: `Issue a signed bearer token for an existing user, for scripts and
manual API testing. The user is looked up so the token carries the
current name, email and role.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenUserID == "" {
				return fmt.Errorf("--user-id is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			svc, pool, err := openUserService(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			user, err := svc.GetByID(cmd.Context(), tokenUserID)
			if err != nil {
				return fmt.Errorf("load user: %w", err)
			}

			expiry := cfg.Auth.JWTExpiry
			if tokenExpiry > 0 {
				expiry = tokenExpiry
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, expiry, cfg.Auth.JWTIssuer)
			token, err := tokens.Issue(user.Identity())
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenUserID, "user-id", "", "id of the user the token is issued for")
	cmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "token lifetime (default: JWT_EXPIRY_DAYS)")
	return cmd
}
