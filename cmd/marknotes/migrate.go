package main

import (
	"fmt"

	"github.com/dukerupert/marknotes/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the notes schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", cfg.Database.Path, err)
		}
		defer db.Close()

		logger.Info("database is up to date", "path", cfg.Database.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
