package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/output"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the alert table schema",
	Long:  "Apply or roll back the PostgreSQL alert schema. Only database.type postgres uses migrations.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cfg.Database.Type != "postgres" {
			return fmt.Errorf("migrations apply to database.type postgres, not %s", cfg.Database.Type)
		}
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrations.Up(cfg.Database.Postgres.ConnString()); err != nil {
			return err
		}
		output.Success(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations (drops the alert table)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrations.Down(cfg.Database.Postgres.ConnString()); err != nil {
			return err
		}
		output.Success(cmd.OutOrStdout(), "schema rolled back")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		version, dirty, err := migrations.Version(cfg.Database.Postgres.ConnString())
		if err != nil {
			return err
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		output.Info(cmd.OutOrStdout(), "schema version %d%s", version, suffix)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
