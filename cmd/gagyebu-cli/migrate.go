package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gagyebu/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				dbPath = a.cfg.SQLiteDBPath
			}
			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			if err := storage.RunMigrations(dbPath); err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(dbPath)
			if err != nil {
				return err
			}
			a.logger.Info("Migrations applied", "db_path", dbPath, "version", version, "dirty", dirty)
			fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", dbPath, version)
			if dirty {
				return fmt.Errorf("schema version %d is marked dirty", version)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default: SQLITE_DB_PATH)")
	return cmd
}
