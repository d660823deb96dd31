package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/metrics"
	"github.com/rl1809/gold-inventory/internal/port"
)

// CheckoutService settles a cart against the stock store: every line's stock
// is decremented and a sale recorded, or nothing is.
type CheckoutService struct {
	store     port.StockStore
	validator *StockValidator
	currency  currency.Unit
	logger    *zap.Logger
	now       func() time.Time
}

func NewCheckoutService(store port.StockStore, validator *StockValidator, unit currency.Unit, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		store:     store,
		validator: validator,
		currency:  unit,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the clock used to date sale records.
func (s *CheckoutService) WithClock(now func() time.Time) *CheckoutService {
	s.now = now
	return s
}

// Preview runs the read-only validation pass and returns what a checkout
// would charge right now.
func (s *CheckoutService) Preview(ctx context.Context, cart *domain.Cart) (*domain.Quote, error) {
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	lines := cart.Lines()
	shortages, err := s.validator.Shortages(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(shortages) > 0 {
		return nil, &StockError{Shortages: shortages}
	}

	return &domain.Quote{
		Lines: lines,
		Total: domain.NewMoney(cart.Total(), s.currency),
		Units: cart.ItemCount(),
	}, nil
}

func (s *CheckoutService) Checkout(ctx context.Context, customerID int64, cart *domain.Cart) (*domain.Receipt, error) {
	a := s.begin(customerID)
	receipt, err := s.run(ctx, a, customerID, cart)
	if err != nil {
		a.advance(domain.CheckoutRolledBack)
		a.finish(err)
		return nil, err
	}

	a.advance(domain.CheckoutCommitted)
	a.finish(nil)
	receipt.State = a.state

	return receipt, nil
}

func (s *CheckoutService) run(ctx context.Context, a *attempt, customerID int64, cart *domain.Cart) (*domain.Receipt, error) {
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if customerID <= 0 {
		return nil, ErrInvalidCustomer
	}

	a.advance(domain.CheckoutValidating)
	lines := cart.Lines()

	shortages, err := s.validator.Shortages(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(shortages) > 0 {
		return nil, &StockError{Shortages: shortages}
	}

	a.advance(domain.CheckoutCommitting)
	saleDate := domain.SaleDay(s.now())
	sales := make([]domain.SaleRecord, 0, len(lines))

	err = s.store.WithinTx(ctx, func(tx port.SettlementTx) error {
		sales = sales[:0]

		for _, line := range lines {
			rows, err := tx.ConditionalDecrement(ctx, line.ItemID, line.Quantity)
			if err != nil {
				return storageError("decrement stock", err)
			}
			if rows == 0 {
				return &ConflictError{ItemID: line.ItemID, Name: line.Name, Quantity: line.Quantity}
			}

			sale := domain.SaleRecord{
				CheckoutID: a.id,
				CustomerID: customerID,
				ItemID:     line.ItemID,
				ItemName:   line.Name,
				Quantity:   line.Quantity,
				Amount:     line.Total(),
				SaleDate:   saleDate,
			}
			if err := tx.AppendSale(ctx, sale); err != nil {
				return storageError("append sale", err)
			}
			sales = append(sales, sale)
		}

		return nil
	})
	if err != nil {
		return nil, s.settlementError(err, lines)
	}

	total := decimal.Zero
	units := 0
	for _, sale := range sales {
		total = total.Add(sale.Amount)
		units += sale.Quantity
	}

	cart.Clear()

	return &domain.Receipt{
		CheckoutID: a.id,
		CustomerID: customerID,
		Lines:      sales,
		Total:      domain.NewMoney(total, s.currency),
		Units:      units,
	}, nil
}

func (s *CheckoutService) settlementError(err error, lines []domain.CartLine) error {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return err
	}

	// stores that only detect the conflict at commit
	var storeConflict *port.StockConflictError
	if errors.As(err, &storeConflict) {
		c := &ConflictError{ItemID: storeConflict.ItemID}
		for _, l := range lines {
			if l.ItemID == storeConflict.ItemID {
				c.Name, c.Quantity = l.Name, l.Quantity
			}
		}
		return c
	}

	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return storageError("settle", err)
}

type attempt struct {
	id         uuid.UUID
	customerID int64
	state      domain.CheckoutState
	started    time.Time
	logger     *zap.Logger
}

func (s *CheckoutService) begin(customerID int64) *attempt {
	id := uuid.New()
	return &attempt{
		id:         id,
		customerID: customerID,
		state:      domain.CheckoutIdle,
		started:    time.Now(),
		logger: s.logger.With(
			zap.String("checkout_id", id.String()),
			zap.Int64("customer_id", customerID)),
	}
}

func (a *attempt) advance(next domain.CheckoutState) {
	if a.state.Terminal() {
		panic(fmt.Sprintf("checkout %s: transition from terminal state %s to %s", a.id, a.state, next))
	}
	a.logger.Debug("checkout transition",
		zap.Stringer("from", a.state),
		zap.Stringer("to", next))
	a.state = next
}

func (a *attempt) finish(err error) {
	reason := failureReason(err)
	metrics.ObserveCheckout(a.state.String(), reason, time.Since(a.started))

	if err != nil {
		a.logger.Info("checkout rolled back", zap.String("reason", reason), zap.Error(err))
		return
	}
	a.logger.Info("checkout committed")
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInvalidCustomer):
		return "invalid_customer"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrConcurrentStockChange):
		return "concurrent_stock_change"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "other"
	}
}
