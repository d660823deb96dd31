package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/port"
)

// Mock ItemRepository
type mockItems struct {
	mu     sync.Mutex
	items  map[int64]domain.Item
	nextID int64
	err    error
}

func newMockItems() *mockItems {
	return &mockItems{items: make(map[int64]domain.Item), nextID: 1}
}

func (m *mockItems) GetItem(ctx context.Context, itemID int64) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Item{}, m.err
	}
	item, ok := m.items[itemID]
	if !ok {
		return domain.Item{}, port.ErrNotFound
	}
	return item, nil
}

func (m *mockItems) ListItems(ctx context.Context, inStockOnly bool) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Item
	for _, item := range m.items {
		if !inStockOnly || item.InStock() {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockItems) SaveItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Item{}, m.err
	}
	if item.ID == 0 {
		item.ID = m.nextID
		m.nextID++
	} else if _, ok := m.items[item.ID]; !ok {
		return domain.Item{}, port.ErrNotFound
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *mockItems) DeleteItem(ctx context.Context, itemID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.items[itemID]
	delete(m.items, itemID)
	return ok, nil
}

func validNewItem() NewItem {
	return NewItem{
		Name:         "Temple necklace",
		WeightGrams:  decimal.RequireFromString("12.5"),
		PurityKarat:  22,
		PricePerGram: decimal.RequireFromString("6000"),
		Quantity:     4,
	}
}

func TestInventoryService_AddItem(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(n *NewItem)
		wantError string
	}{
		{name: "valid item: ok", mutate: func(n *NewItem) {}},
		{name: "empty name", mutate: func(n *NewItem) { n.Name = "  " }, wantError: "invalid item: name is empty"},
		{name: "zero weight", mutate: func(n *NewItem) { n.WeightGrams = decimal.Zero }, wantError: "invalid item: weight must be positive"},
		{name: "negative price", mutate: func(n *NewItem) { n.PricePerGram = decimal.NewFromInt(-1) }, wantError: "invalid item: price per gram must be positive"},
		{name: "unknown purity", mutate: func(n *NewItem) { n.PurityKarat = 21 }, wantError: "invalid item: purity 21K not in [14 18 22 24]"},
		{name: "zero quantity", mutate: func(n *NewItem) { n.Quantity = 0 }, wantError: "invalid item: quantity must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewInventoryService(newMockItems(), zap.NewNop())
			in := validNewItem()
			tt.mutate(&in)

			item, err := svc.AddItem(context.Background(), in)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				assert.ErrorIs(t, err, ErrInvalidItem)
				return
			}
			require.NoError(t, err)

			assert.NotZero(t, item.ID)
			assert.Equal(t, "75000.00", item.UnitPrice.StringFixed(2))
			assert.Equal(t, 4, item.Quantity)
		})
	}
}

func TestInventoryService_UpdateItem(t *testing.T) {
	repo := newMockItems()
	svc := NewInventoryService(repo, zap.NewNop())
	ctx := context.Background()

	item, err := svc.AddItem(ctx, validNewItem())
	require.NoError(t, err)

	in := validNewItem()
	in.Quantity = 0
	in.PricePerGram = decimal.RequireFromString("6100")
	updated, err := svc.UpdateItem(ctx, item.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, "76250.00", updated.UnitPrice.StringFixed(2))

	_, err = svc.UpdateItem(ctx, 999, in)
	assert.ErrorIs(t, err, ErrItemNotFound)

	in.Quantity = -1
	_, err = svc.UpdateItem(ctx, item.ID, in)
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestInventoryService_DeleteAndGet(t *testing.T) {
	repo := newMockItems()
	svc := NewInventoryService(repo, zap.NewNop())
	ctx := context.Background()

	item, err := svc.AddItem(ctx, validNewItem())
	require.NoError(t, err)

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, got)

	require.NoError(t, svc.DeleteItem(ctx, item.ID))
	assert.ErrorIs(t, svc.DeleteItem(ctx, item.ID), ErrItemNotFound)

	_, err = svc.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestInventoryService_ListItems(t *testing.T) {
	repo := newMockItems()
	svc := NewInventoryService(repo, zap.NewNop())
	ctx := context.Background()

	in := validNewItem()
	_, err := svc.AddItem(ctx, in)
	require.NoError(t, err)
	sold, err := svc.AddItem(ctx, in)
	require.NoError(t, err)
	in.Quantity = 0
	_, err = svc.UpdateItem(ctx, sold.ID, in)
	require.NoError(t, err)

	all, err := svc.ListItems(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	available, err := svc.ListItems(ctx, true)
	require.NoError(t, err)
	assert.Len(t, available, 1)

	repo.err = errStoreDown
	_, err = svc.ListItems(ctx, true)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
