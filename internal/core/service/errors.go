package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrConcurrentStockChange = errors.New("stock changed concurrently")
	ErrStorageUnavailable    = errors.New("storage unavailable")

	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrItemNotInCart   = errors.New("item not in cart")
	ErrItemNotFound    = errors.New("item not found")
	ErrInvalidItem     = errors.New("invalid item")
	ErrInvalidCustomer = errors.New("customer id must be positive")
)

type Shortage struct {
	ItemID    int64
	Name      string
	Requested int
	Available int
}

func (s Shortage) String() string {
	return fmt.Sprintf("item %d (%s): requested %d, available %d", s.ItemID, s.Name, s.Requested, s.Available)
}

// StockError reports every item whose requested quantity exceeds current stock.
type StockError struct {
	Shortages []Shortage
}

func (e *StockError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientStock, strings.Join(parts, "; "))
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ConflictError reports a guarded decrement that affected no rows even though
// the item passed validation moments earlier.
type ConflictError struct {
	ItemID   int64
	Name     string
	Quantity int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: item %d (%s) could not be decremented by %d", ErrConcurrentStockChange, e.ItemID, e.Name, e.Quantity)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConcurrentStockChange
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
