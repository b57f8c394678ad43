package cli

import (
	"database/sql"
	"fmt"

	"github.com/isdelr/annotation-hub-be/internal/database"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()
			log.Info().Str("path", cfg.DatabasePath).Msg("Database schema is up to date")
			return nil
		},
	}
}

// openDatabase opens the SQLite file and applies migrations.
func openDatabase(path string) (*sql.DB, error) {
	db, err := database.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}
