package main

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/adapter/storage"
	"github.com/rl1809/gold-inventory/internal/core/service"
)

var demoItems = []service.NewItem{
	{Name: "Classic Bangle", WeightGrams: decimal.RequireFromString("15.5"), PurityKarat: 22, PricePerGram: decimal.RequireFromString("6450"), Quantity: 12},
	{Name: "Solitaire Ring", WeightGrams: decimal.RequireFromString("4.2"), PurityKarat: 18, PricePerGram: decimal.RequireFromString("5280"), Quantity: 25},
	{Name: "Rope Chain", WeightGrams: decimal.RequireFromString("20"), PurityKarat: 22, PricePerGram: decimal.RequireFromString("6450"), Quantity: 8},
	{Name: "Bullion Coin", WeightGrams: decimal.RequireFromString("10"), PurityKarat: 24, PricePerGram: decimal.RequireFromString("7040"), Quantity: 40},
	{Name: "Stud Earrings", WeightGrams: decimal.RequireFromString("3.1"), PurityKarat: 14, PricePerGram: decimal.RequireFromString("4110"), Quantity: 30},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo stock items into the configured store",
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

		ctx := cmd.Context()
		store, err := storage.Open(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if m, ok := store.(storage.Migrator); ok {
			if err := m.Migrate(ctx); err != nil {
				return err
			}
		}

		inventory := service.NewInventoryService(store, logger)
		for _, in := range demoItems {
			if _, err := inventory.AddItem(ctx, in); err != nil {
				return err
			}
		}

		logger.Info("demo items loaded", zap.Int("count", len(demoItems)))
		return nil
	},
}
