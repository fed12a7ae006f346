package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/marknotes/internal/config"
	"github.com/dukerupert/marknotes/internal/database"
	"github.com/dukerupert/marknotes/internal/logging"
	"github.com/dukerupert/marknotes/internal/markdown"
	"github.com/dukerupert/marknotes/internal/notes"
	"github.com/dukerupert/marknotes/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "marknotes",
	Short:        "Markdown notes server",
	Long:         `marknotes stores markdown notes in SQLite and serves them over a JSON API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("db") {
			loaded.Database.Path, _ = flags.GetString("db")
		}
		if flags.Changed("log-level") {
			loaded.Logging.Level, _ = flags.GetString("log-level")
		}
		if err := loaded.Validate(); err != nil {
			return err
		}

		cfg = loaded
		logger = logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

// openService opens the configured database and wires a note service
// over it. The caller closes the returned db.
func openService() (*notes.Service, *sql.DB, error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	svc := notes.NewService(store.NewNoteStore(db), markdown.NewProcessor(),
		notes.WithLogger(logger.With("component", "notes")))
	return svc, db, nil
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides MARKNOTES_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}
