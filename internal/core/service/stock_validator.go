package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/metrics"
	"github.com/rl1809/gold-inventory/internal/port"
)

// StockValidator answers how much of an item is purchasable right now. Every
// call goes to the store; nothing is cached because other sessions may have
// changed stock since the last read.
type StockValidator struct {
	store  port.StockStore
	logger *zap.Logger
}

func NewStockValidator(store port.StockStore, logger *zap.Logger) *StockValidator {
	return &StockValidator{store: store, logger: logger}
}

// AvailableStock returns the item's current stock, or 0 when it cannot be
// read. Treating failures as empty stock blocks further increases.
func (v *StockValidator) AvailableStock(ctx context.Context, itemID int64) int {
	qty, err := v.store.ReadQuantity(ctx, itemID)
	if err != nil {
		if !errors.Is(err, port.ErrNotFound) {
			metrics.StockReadFailed()
			v.logger.Warn("stock read failed, treating as zero",
				zap.Int64("item_id", itemID), zap.Error(err))
		}
		return 0
	}
	if qty < 0 {
		return 0
	}
	return qty
}

// Shortages re-reads stock for every line and returns the lines that exceed
// it. Missing items count as zero stock; store failures are returned so the
// caller can tell "cannot check" apart from "not enough".
func (v *StockValidator) Shortages(ctx context.Context, lines []domain.CartLine) ([]Shortage, error) {
	var shortages []Shortage

	for _, line := range lines {
		qty, err := v.store.ReadQuantity(ctx, line.ItemID)
		switch {
		case errors.Is(err, port.ErrNotFound):
			qty = 0
		case err != nil:
			metrics.StockReadFailed()
			return nil, storageError("read stock", err)
		}

		if line.Quantity > qty {
			shortages = append(shortages, Shortage{
				ItemID:    line.ItemID,
				Name:      line.Name,
				Requested: line.Quantity,
				Available: max(qty, 0),
			})
		}
	}

	return shortages, nil
}
