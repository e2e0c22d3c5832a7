package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"example.com/tripplanner/internal/config"
	"example.com/tripplanner/internal/observability"
	"example.com/tripplanner/internal/persistence/postgres"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the trip planner database schema",
	Long: `migrate applies and rolls back the embedded Postgres migrations.
The connection string defaults to POSTGRES_URL from the service configuration.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		observability.NewLogger("tripplanner-migrate", cfg.LogLevel)
		if databaseURL == "" {
			databaseURL = cfg.PostgresURL
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (overrides POSTGRES_URL)")
}

func withMigrator(fn func(*postgres.Migrator) error) error {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
