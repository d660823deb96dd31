package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/rl1809/gold-inventory/internal/core/domain"
)

func TestReportService_AfterCheckouts(t *testing.T) {
	f := newCheckoutFixture(map[int64]int{1: 10, 2: 10})
	reports := NewReportService(f.store, currency.INR)
	ctx := context.Background()

	first := domain.NewCart()
	f.fill(t, first, map[int64]int{1: 2}, "500")
	_, err := f.checkout.Checkout(ctx, 7, first)
	require.NoError(t, err)

	second := domain.NewCart()
	f.fill(t, second, map[int64]int{1: 1, 2: 3}, "200")
	_, err = f.checkout.Checkout(ctx, 8, second)
	require.NoError(t, err)

	history, err := reports.PurchaseHistory(ctx, 8)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, sale := range history {
		assert.Equal(t, int64(8), sale.CustomerID)
	}

	report, err := reports.DailySales(ctx, fixedNow.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Len(t, report.Sales, 3)
	assert.Equal(t, 6, report.Units)
	assert.Equal(t, "1800", report.Total.Amount.String())
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), report.Day)

	empty, err := reports.DailySales(ctx, fixedNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, empty.Sales)
	assert.True(t, empty.Total.Amount.IsZero())
}

func TestReportService_Errors(t *testing.T) {
	store := newMockStore(nil)
	reports := NewReportService(store, currency.INR)

	_, err := reports.PurchaseHistory(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidCustomer)

	store.readErr = errStoreDown
	_, err = reports.PurchaseHistory(context.Background(), 1)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	_, err = reports.DailySales(context.Background(), fixedNow)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
