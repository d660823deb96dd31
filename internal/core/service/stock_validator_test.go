package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/core/domain"
)

func TestAvailableStock(t *testing.T) {
	tests := []struct {
		name    string
		stock   map[int64]int
		readErr error
		itemID  int64
		want    int
	}{
		{name: "existing item", stock: map[int64]int{1: 7}, itemID: 1, want: 7},
		{name: "missing item reads as zero", stock: map[int64]int{1: 7}, itemID: 2, want: 0},
		{name: "store failure reads as zero", stock: map[int64]int{1: 7}, readErr: errStoreDown, itemID: 1, want: 0},
		{name: "negative stock clamps to zero", stock: map[int64]int{1: -3}, itemID: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore(tt.stock)
			store.readErr = tt.readErr
			v := NewStockValidator(store, zap.NewNop())

			assert.Equal(t, tt.want, v.AvailableStock(context.Background(), tt.itemID))
		})
	}
}

func TestAvailableStock_NeverCached(t *testing.T) {
	store := newMockStore(map[int64]int{1: 7})
	v := NewStockValidator(store, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, 7, v.AvailableStock(ctx, 1))
	store.setStock(1, 4)
	assert.Equal(t, 4, v.AvailableStock(ctx, 1))
	assert.Equal(t, 2, store.reads)
}

func TestShortages(t *testing.T) {
	store := newMockStore(map[int64]int{1: 5, 2: 1})
	v := NewStockValidator(store, zap.NewNop())

	lines := []domain.CartLine{
		{ItemID: 1, Name: "ring", Quantity: 5},
		{ItemID: 2, Name: "chain", Quantity: 2},
		{ItemID: 3, Name: "coin", Quantity: 1},
	}

	shortages, err := v.Shortages(context.Background(), lines)
	require.NoError(t, err)
	assert.Equal(t, []Shortage{
		{ItemID: 2, Name: "chain", Requested: 2, Available: 1},
		{ItemID: 3, Name: "coin", Requested: 1, Available: 0},
	}, shortages)
}

func TestShortages_StoreFailure(t *testing.T) {
	store := newMockStore(map[int64]int{1: 5})
	store.readErr = errStoreDown
	v := NewStockValidator(store, zap.NewNop())

	_, err := v.Shortages(context.Background(), []domain.CartLine{{ItemID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, errStoreDown)
}
