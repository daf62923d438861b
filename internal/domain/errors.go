package domain

import (
	"errors"
	"fmt"
)

// Storage-level sentinels. Repositories wrap these; the usecase layer maps
// them onto request errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate value")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCouponExhausted   = errors.New("coupon exhausted")
)

// StockError names the product whose stock could not cover the order.
type StockError struct {
	ProductID uint
}

func (e *StockError) Error() string {
	return fmt.Sprintf("product %d: %s", e.ProductID, ErrInsufficientStock)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
