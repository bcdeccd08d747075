package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/killallgit/media-transcript-api/internal/database"
	"github.com/killallgit/media-transcript-api/internal/services/content"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the schema of the Media Transcript API stores.

Migrations are applied with gorm AutoMigrate, which only adds missing
tables, columns and indexes. It never drops data.

Available subcommands:
  up      - Create or update the sqlite tables and, for the mongo backend, the collection indexes
  status  - Show which tables and indexes exist`,
}

// migrateUpCmd applies the schema
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply the schema",
	Long: `Apply the database schema.

This creates the content record and processing run tables in the sqlite
database and, when the mongo store backend is configured, the unique job
id index on the content collection.`,
	RunE: runMigrateUp,
}

// migrateStatusCmd shows schema status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of the database schema.

This shows which tables and indexes exist in the sqlite database.`,
	RunE: runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := database.InitializeWithMigrations()
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema applied to %s\n", cfg.Database.Path)

	if cfg.Store.Backend == "mongo" {
		// ConnectMongo ensures the indexes
		repo, err := content.ConnectMongo(cmd.Context(), cfg.Mongo)
		if err != nil {
			return err
		}
		defer repo.Close(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "mongo indexes ensured on %s.%s\n", cfg.Mongo.Database, cfg.Mongo.Collection)
	}
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Database Schema Status")
	for _, status := range db.SchemaStatus() {
		state := "missing"
		if status.Present {
			state = "present"
		}
		fmt.Fprintf(out, "  %-24s %s\n", status.Name, state)
	}
	return nil
}
