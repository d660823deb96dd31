package port

import (
	"context"
	"time"

	"github.com/rl1809/gold-inventory/internal/core/domain"
)

type ItemRepository interface {
	GetItem(ctx context.Context, itemID int64) (domain.Item, error)

	// ListItems returns items ordered by name, only those with stock when inStockOnly is set
	ListItems(ctx context.Context, inStockOnly bool) ([]domain.Item, error)

	// SaveItem inserts the item when ID is zero, otherwise updates it (ErrNotFound if missing)
	SaveItem(ctx context.Context, item domain.Item) (domain.Item, error)

	DeleteItem(ctx context.Context, itemID int64) (bool, error)
}

// SalesLedger is the read side of the ledger; rows are appended through SettlementTx.
type SalesLedger interface {
	// ListSalesByCustomer returns the customer's sales, newest first
	ListSalesByCustomer(ctx context.Context, customerID int64) ([]domain.SaleRecord, error)

	// ListSalesByDate returns all sales of the calendar day, ordered by sale ID
	ListSalesByDate(ctx context.Context, day time.Time) ([]domain.SaleRecord, error)
}

type Store interface {
	StockStore
	ItemRepository
	SalesLedger

	Ping(ctx context.Context) error
	Close() error
}
