package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/port"
)

// MemoryAdapter keeps items and the ledger in process memory. Settlements are
// serialised and buffered, so a failed settlement leaves no trace.
type MemoryAdapter struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	items      map[int64]domain.Item
	sales      []domain.SaleRecord
	nextItemID int64
	nextSaleID int64

	now func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		items: make(map[int64]domain.Item),
		now:   time.Now,
	}
}

func (m *MemoryAdapter) ReadQuantity(ctx context.Context, itemID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemID]
	if !ok {
		return 0, port.ErrNotFound
	}
	return item.Quantity, nil
}

// SetStock overwrites an item's stock.
func (m *MemoryAdapter) SetStock(ctx context.Context, itemID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return port.ErrNotFound
	}
	item.Quantity = quantity
	m.items[itemID] = item
	return nil
}

func (m *MemoryAdapter) WithinTx(ctx context.Context, fn func(tx port.SettlementTx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memorySettlement{m: m, pending: make(map[int64]int)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, dec := range tx.pending {
		item, ok := m.items[id]
		if !ok || item.Quantity < dec {
			return &port.StockConflictError{ItemID: id}
		}
	}

	now := m.now()
	for id, dec := range tx.pending {
		item := m.items[id]
		item.Quantity -= dec
		item.UpdatedAt = now
		m.items[id] = item
	}
	for _, sale := range tx.sales {
		m.nextSaleID++
		sale.ID = m.nextSaleID
		sale.SaleDate = domain.SaleDay(sale.SaleDate)
		m.sales = append(m.sales, sale)
	}
	return nil
}

type memorySettlement struct {
	m       *MemoryAdapter
	pending map[int64]int
	sales   []domain.SaleRecord
}

func (s *memorySettlement) ConditionalDecrement(ctx context.Context, itemID int64, amount int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.m.mu.RLock()
	item, ok := s.m.items[itemID]
	s.m.mu.RUnlock()

	if !ok || item.Quantity-s.pending[itemID] < amount {
		return 0, nil
	}
	s.pending[itemID] += amount
	return 1, nil
}

func (s *memorySettlement) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sales = append(s.sales, sale)
	return nil
}

func (m *MemoryAdapter) GetItem(ctx context.Context, itemID int64) (domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemID]
	if !ok {
		return domain.Item{}, port.ErrNotFound
	}
	return item, nil
}

func (m *MemoryAdapter) ListItems(ctx context.Context, inStockOnly bool) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []domain.Item
	for _, item := range m.items {
		if !inStockOnly || item.InStock() {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b domain.Item) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return items, nil
}

func (m *MemoryAdapter) SaveItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if item.ID == 0 {
		m.nextItemID++
		item.ID = m.nextItemID
		item.CreatedAt = now
	} else {
		existing, ok := m.items[item.ID]
		if !ok {
			return domain.Item{}, port.ErrNotFound
		}
		item.CreatedAt = existing.CreatedAt
	}
	item.UpdatedAt = now
	m.items[item.ID] = item
	return item, nil
}

func (m *MemoryAdapter) DeleteItem(ctx context.Context, itemID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[itemID]; !ok {
		return false, nil
	}
	delete(m.items, itemID)
	return true, nil
}

func (m *MemoryAdapter) ListSalesByCustomer(ctx context.Context, customerID int64) ([]domain.SaleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sales []domain.SaleRecord
	for _, s := range m.sales {
		if s.CustomerID == customerID {
			sales = append(sales, m.withName(s))
		}
	}
	// newest first: sale date, then sale ID
	slices.SortFunc(sales, func(a, b domain.SaleRecord) int {
		if c := b.SaleDate.Compare(a.SaleDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return sales, nil
}

func (m *MemoryAdapter) ListSalesByDate(ctx context.Context, day time.Time) ([]domain.SaleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day = domain.SaleDay(day)
	var sales []domain.SaleRecord
	for _, s := range m.sales {
		if s.SaleDate.Equal(day) {
			sales = append(sales, m.withName(s))
		}
	}
	return sales, nil
}

func (m *MemoryAdapter) withName(s domain.SaleRecord) domain.SaleRecord {
	s.ItemName = m.items[s.ItemID].Name
	return s
}

func (m *MemoryAdapter) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryAdapter) Close() error {
	return nil
}
