package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/port"
)

var errStoreDown = errors.New("connection refused")

// Mock StockStore + SalesLedger with buffered transactions
type mockStore struct {
	txMu  sync.Mutex // serialises transactions like a row lock
	mu    sync.Mutex
	stock map[int64]int
	sales []domain.SaleRecord

	readErr   error
	appendErr error
	commitErr error

	// called inside the transaction before each guarded decrement
	beforeDecrement func(itemID int64)

	reads int
}

func newMockStore(stock map[int64]int) *mockStore {
	if stock == nil {
		stock = make(map[int64]int)
	}
	return &mockStore{stock: stock}
}

func (m *mockStore) ReadQuantity(ctx context.Context, itemID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.readErr != nil {
		return 0, m.readErr
	}
	qty, ok := m.stock[itemID]
	if !ok {
		return 0, port.ErrNotFound
	}
	return qty, nil
}

func (m *mockStore) setStock(itemID int64, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[itemID] = qty
}

func (m *mockStore) stockOf(itemID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[itemID]
}

func (m *mockStore) salesCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}

type mockTx struct {
	m       *mockStore
	pending map[int64]int
	sales   []domain.SaleRecord
}

func (m *mockStore) WithinTx(ctx context.Context, fn func(tx port.SettlementTx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &mockTx{m: m, pending: make(map[int64]int)}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commitErr != nil {
		return m.commitErr
	}
	for id, dec := range tx.pending {
		m.stock[id] -= dec
	}
	m.sales = append(m.sales, tx.sales...)
	return nil
}

func (t *mockTx) ConditionalDecrement(ctx context.Context, itemID int64, amount int) (int64, error) {
	if t.m.beforeDecrement != nil {
		t.m.beforeDecrement(itemID)
	}

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	qty, ok := t.m.stock[itemID]
	if !ok || qty-t.pending[itemID] < amount {
		return 0, nil
	}
	t.pending[itemID] += amount
	return 1, nil
}

func (t *mockTx) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	if t.m.appendErr != nil {
		return t.m.appendErr
	}
	t.sales = append(t.sales, sale)
	return nil
}

func (m *mockStore) ListSalesByCustomer(ctx context.Context, customerID int64) ([]domain.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []domain.SaleRecord
	for i := len(m.sales) - 1; i >= 0; i-- {
		if m.sales[i].CustomerID == customerID {
			out = append(out, m.sales[i])
		}
	}
	return out, nil
}

func (m *mockStore) ListSalesByDate(ctx context.Context, day time.Time) ([]domain.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []domain.SaleRecord
	for _, s := range m.sales {
		if s.SaleDate.Equal(day) {
			out = append(out, s)
		}
	}
	return out, nil
}
