package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purity grades accepted for stock items, in karat.
var PurityGrades = []int{14, 18, 22, 24}

type Item struct {
	ID           int64
	Name         string
	WeightGrams  decimal.Decimal
	PurityKarat  int
	PricePerGram decimal.Decimal
	UnitPrice    decimal.Decimal // weight * price per gram, price of one unit
	Quantity     int             // available stock, never negative
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (i Item) InStock() bool {
	return i.Quantity > 0
}

func UnitPriceOf(weightGrams, pricePerGram decimal.Decimal) decimal.Decimal {
	return weightGrams.Mul(pricePerGram).Round(2)
}

func ValidPurity(karat int) bool {
	for _, p := range PurityGrades {
		if p == karat {
			return true
		}
	}
	return false
}
