package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/port"
)

// NewItem carries the staff-editable fields of a stock item.
type NewItem struct {
	Name         string
	WeightGrams  decimal.Decimal
	PurityKarat  int
	PricePerGram decimal.Decimal
	Quantity     int
}

func (n NewItem) validate(adding bool) error {
	switch {
	case strings.TrimSpace(n.Name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidItem)
	case !n.WeightGrams.IsPositive():
		return fmt.Errorf("%w: weight must be positive", ErrInvalidItem)
	case !n.PricePerGram.IsPositive():
		return fmt.Errorf("%w: price per gram must be positive", ErrInvalidItem)
	case !domain.ValidPurity(n.PurityKarat):
		return fmt.Errorf("%w: purity %dK not in %v", ErrInvalidItem, n.PurityKarat, domain.PurityGrades)
	case adding && n.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidItem)
	case n.Quantity < 0:
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidItem)
	}
	return nil
}

type InventoryService struct {
	items  port.ItemRepository
	logger *zap.Logger
}

func NewInventoryService(items port.ItemRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{items: items, logger: logger}
}

func (s *InventoryService) ListItems(ctx context.Context, inStockOnly bool) ([]domain.Item, error) {
	items, err := s.items.ListItems(ctx, inStockOnly)
	if err != nil {
		return nil, storageError("list items", err)
	}
	return items, nil
}

func (s *InventoryService) GetItem(ctx context.Context, itemID int64) (domain.Item, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if errors.Is(err, port.ErrNotFound) {
		return domain.Item{}, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	if err != nil {
		return domain.Item{}, storageError("get item", err)
	}
	return item, nil
}

func (s *InventoryService) AddItem(ctx context.Context, in NewItem) (domain.Item, error) {
	if err := in.validate(true); err != nil {
		return domain.Item{}, err
	}

	item, err := s.items.SaveItem(ctx, toItem(0, in))
	if err != nil {
		return domain.Item{}, storageError("save item", err)
	}

	s.logger.Info("item added", zap.Int64("item_id", item.ID), zap.String("name", item.Name), zap.Int("quantity", item.Quantity))
	return item, nil
}

func (s *InventoryService) UpdateItem(ctx context.Context, itemID int64, in NewItem) (domain.Item, error) {
	if err := in.validate(false); err != nil {
		return domain.Item{}, err
	}

	item, err := s.items.SaveItem(ctx, toItem(itemID, in))
	if errors.Is(err, port.ErrNotFound) {
		return domain.Item{}, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	if err != nil {
		return domain.Item{}, storageError("save item", err)
	}

	s.logger.Info("item updated", zap.Int64("item_id", item.ID), zap.Int("quantity", item.Quantity))
	return item, nil
}

func (s *InventoryService) DeleteItem(ctx context.Context, itemID int64) error {
	deleted, err := s.items.DeleteItem(ctx, itemID)
	if err != nil {
		return storageError("delete item", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}

	s.logger.Info("item deleted", zap.Int64("item_id", itemID))
	return nil
}

func toItem(id int64, in NewItem) domain.Item {
	return domain.Item{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		WeightGrams:  in.WeightGrams,
		PurityKarat:  in.PurityKarat,
		PricePerGram: in.PricePerGram,
		UnitPrice:    domain.UnitPriceOf(in.WeightGrams, in.PricePerGram),
		Quantity:     in.Quantity,
	}
}
