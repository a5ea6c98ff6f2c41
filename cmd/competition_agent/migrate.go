package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/competition-radar/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	version, dirty, err := db.RunMigrations(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Database at migration version %d (dirty: %t)\n", version, dirty)
	return nil
}
