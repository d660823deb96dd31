package port

import (
	"context"
	"errors"
	"fmt"

	"github.com/rl1809/gold-inventory/internal/core/domain"
)

var ErrNotFound = errors.New("not found")

type StockStore interface {
	// ReadQuantity returns the current stock of an item, ErrNotFound if it does not exist
	ReadQuantity(ctx context.Context, itemID int64) (int, error)

	// WithinTx runs fn in one atomic settlement scope, committing only when fn returns nil
	WithinTx(ctx context.Context, fn func(tx SettlementTx) error) error
}

type SettlementTx interface {
	// ConditionalDecrement subtracts amount from the item's stock only if stock >= amount,
	// returning the number of rows affected (0 or 1)
	ConditionalDecrement(ctx context.Context, itemID int64, amount int) (int64, error)

	// AppendSale records one ledger row in the same transaction
	AppendSale(ctx context.Context, sale domain.SaleRecord) error
}

var ErrStockConflict = errors.New("stock conflict")

// StockConflictError is returned by stores that detect an unsatisfiable
// guarded decrement only when the transaction commits.
type StockConflictError struct {
	ItemID int64
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("%s on item %d", ErrStockConflict, e.ItemID)
}

func (e *StockConflictError) Is(target error) bool {
	return target == ErrStockConflict
}
