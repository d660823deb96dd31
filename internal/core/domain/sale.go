package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleRecord struct {
	ID         int64
	CheckoutID uuid.UUID
	CustomerID int64
	ItemID     int64
	ItemName   string // filled on reads only
	Quantity   int
	Amount     decimal.Decimal // line total
	SaleDate   time.Time       // calendar date, UTC midnight
}

// SaleDay truncates t to the calendar day it falls on in its own location
// and returns that day as UTC midnight, the form stored in the ledger.
func SaleDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type CheckoutState int

const (
	CheckoutIdle CheckoutState = iota
	CheckoutValidating
	CheckoutCommitting
	CheckoutCommitted
	CheckoutRolledBack
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutIdle:
		return "idle"
	case CheckoutValidating:
		return "validating"
	case CheckoutCommitting:
		return "committing"
	case CheckoutCommitted:
		return "committed"
	case CheckoutRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

func (s CheckoutState) Terminal() bool {
	return s == CheckoutCommitted || s == CheckoutRolledBack
}

type Receipt struct {
	CheckoutID uuid.UUID
	CustomerID int64
	Lines      []SaleRecord
	Total      Money
	Units      int
	State      CheckoutState
}

// Quote is the read-only summary shown before a customer confirms checkout.
type Quote struct {
	Lines []CartLine
	Total Money
	Units int
}
