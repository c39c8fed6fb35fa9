package cmd

import (
	"fmt"

	"github.com/localhub/server/internal/config"
	"github.com/localhub/server/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var migrateSteps int

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back database migrations.

Only DATABASE_URL (and optionally DATABASE_MIGRATIONS_PATH) is read, so the
command works before the rest of the server is configured.`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.LoadDatabase(configPath)
			if err != nil {
				return err
			}
			if err := postgres.MigrateUp(db.URL, db.MigrationsPath); err != nil {
				return err
			}
			return printMigrationVersion(cmd, db)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrateSteps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			db, err := config.LoadDatabase(configPath)
			if err != nil {
				return err
			}
			if err := postgres.MigrateDown(db.URL, db.MigrationsPath, migrateSteps); err != nil {
				return err
			}
			return printMigrationVersion(cmd, db)
		},
	}
	down.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.LoadDatabase(configPath)
			if err != nil {
				return err
			}
			return printMigrationVersion(cmd, db)
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printMigrationVersion(cmd *cobra.Command, db config.DatabaseConfig) error {
	version, dirty, err := postgres.MigrationVersion(db.URL, db.MigrationsPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if version == 0 {
		fmt.Fprintln(out, "Schema version: none")
		return nil
	}
	fmt.Fprintf(out, "Schema version: %d", version)
	if dirty {
		fmt.Fprint(out, " (dirty)")
	}
	fmt.Fprintln(out)
	return nil
}
