package domain

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomLine(itemID int64) CartLine {
	return CartLine{
		ItemID:      itemID,
		Name:        gofakeit.ProductName(),
		WeightGrams: decimal.NewFromFloat(gofakeit.Float64Range(1, 50)).Round(3),
		PurityKarat: 22,
		UnitPrice:   decimal.NewFromFloat(gofakeit.Price(100, 10000)).Round(2),
		Quantity:    gofakeit.IntRange(1, 10),
	}
}

func TestCart_TotalsFollowEveryMutation(t *testing.T) {
	cart := NewCart()

	assertTotals := func() {
		t.Helper()
		want := decimal.Zero
		units := 0
		for _, l := range cart.Lines() {
			want = want.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
			units += l.Quantity
		}
		assert.True(t, want.Equal(cart.Total()), "total %s, want %s", cart.Total(), want)
		assert.Equal(t, units, cart.ItemCount())
	}

	for i := int64(1); i <= 5; i++ {
		cart.Put(randomLine(i))
		assertTotals()
	}

	line, ok := cart.Line(3)
	require.True(t, ok)
	line.Quantity += 2
	cart.Put(line)
	assertTotals()

	assert.True(t, cart.Remove(2))
	assertTotals()

	cart.Put(CartLine{ItemID: 4, Quantity: 0})
	assertTotals()
	_, ok = cart.Line(4)
	assert.False(t, ok)

	cart.Clear()
	assertTotals()
	assert.True(t, cart.IsEmpty())
}

func TestCart_LineTotal(t *testing.T) {
	line := CartLine{ItemID: 1, UnitPrice: decimal.RequireFromString("100.25"), Quantity: 3}
	assert.Equal(t, "300.75", line.Total().StringFixed(2))
}

func TestCart_LinesAreOrderedCopies(t *testing.T) {
	cart := NewCart()
	cart.Put(randomLine(9))
	cart.Put(randomLine(2))
	cart.Put(randomLine(5))

	lines := cart.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, []int64{2, 5, 9}, []int64{lines[0].ItemID, lines[1].ItemID, lines[2].ItemID})

	lines[0].Quantity = 999
	assert.NotEqual(t, 999, cart.QuantityOf(2))
}

func TestCart_RemoveMissing(t *testing.T) {
	cart := NewCart()
	assert.False(t, cart.Remove(42))
	assert.Equal(t, 0, cart.QuantityOf(42))
}

func TestCheckoutState_String(t *testing.T) {
	tests := []struct {
		state    CheckoutState
		want     string
		terminal bool
	}{
		{CheckoutIdle, "idle", false},
		{CheckoutValidating, "validating", false},
		{CheckoutCommitting, "committing", false},
		{CheckoutCommitted, "committed", true},
		{CheckoutRolledBack, "rolled_back", true},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
			assert.Equal(t, tt.terminal, tt.state.Terminal())
		})
	}
}

func TestUnitPriceOf(t *testing.T) {
	got := UnitPriceOf(decimal.RequireFromString("10.5"), decimal.RequireFromString("6200"))
	assert.Equal(t, "65100.00", got.StringFixed(2))
}
