package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/metrics"
)

// CartService applies stock-checked mutations to a caller-owned cart.
type CartService struct {
	validator *StockValidator
	logger    *zap.Logger
}

func NewCartService(validator *StockValidator, logger *zap.Logger) *CartService {
	return &CartService{validator: validator, logger: logger}
}

// AddOrIncrement adds delta units of item to the cart. An existing line keeps
// the unit price it was created with.
func (s *CartService) AddOrIncrement(ctx context.Context, cart *domain.Cart, item domain.Item, delta int) (domain.CartLine, error) {
	if delta <= 0 {
		metrics.CartMutation("add", "invalid")
		return domain.CartLine{}, ErrInvalidQuantity
	}

	available := s.validator.AvailableStock(ctx, item.ID)
	current := cart.QuantityOf(item.ID)

	if current+delta > available {
		metrics.CartMutation("add", "insufficient_stock")
		return domain.CartLine{}, &StockError{Shortages: []Shortage{{
			ItemID:    item.ID,
			Name:      item.Name,
			Requested: current + delta,
			Available: available,
		}}}
	}

	line, ok := cart.Line(item.ID)
	if !ok {
		line = domain.CartLine{
			ItemID:      item.ID,
			Name:        item.Name,
			WeightGrams: item.WeightGrams,
			PurityKarat: item.PurityKarat,
			UnitPrice:   item.UnitPrice,
		}
	}
	line.Quantity += delta
	cart.Put(line)

	metrics.CartMutation("add", "ok")
	s.logger.Debug("cart line added",
		zap.Int64("item_id", item.ID),
		zap.Int("delta", delta),
		zap.Int("quantity", line.Quantity),
		zap.Int("available", available))

	return line, nil
}

// UpdateQuantity overwrites the line's quantity. A non-positive quantity
// removes the line without consulting stock.
func (s *CartService) UpdateQuantity(ctx context.Context, cart *domain.Cart, itemID int64, newQty int) (domain.CartLine, error) {
	line, ok := cart.Line(itemID)
	if !ok {
		metrics.CartMutation("update", "not_in_cart")
		return domain.CartLine{}, ErrItemNotInCart
	}

	if newQty <= 0 {
		cart.Remove(itemID)
		metrics.CartMutation("update", "removed")
		return domain.CartLine{ItemID: itemID}, nil
	}

	available := s.validator.AvailableStock(ctx, itemID)
	if newQty > available {
		metrics.CartMutation("update", "insufficient_stock")
		return domain.CartLine{}, &StockError{Shortages: []Shortage{{
			ItemID:    itemID,
			Name:      line.Name,
			Requested: newQty,
			Available: available,
		}}}
	}

	line.Quantity = newQty
	cart.Put(line)
	metrics.CartMutation("update", "ok")

	return line, nil
}

func (s *CartService) Remove(cart *domain.Cart, itemID int64) bool {
	removed := cart.Remove(itemID)
	if removed {
		metrics.CartMutation("remove", "ok")
	}
	return removed
}

func (s *CartService) Clear(cart *domain.Cart) {
	cart.Clear()
	metrics.CartMutation("clear", "ok")
}
