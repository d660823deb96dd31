package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/adapter/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema to the configured SQL store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := storage.Open(cmd.Context(), cfg.Store, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		m, ok := store.(storage.Migrator)
		if !ok {
			return fmt.Errorf("driver %s has no schema to migrate", cfg.Store.Driver)
		}
		if err := m.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		logger.Info("schema applied", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}
