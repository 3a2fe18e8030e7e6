package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the application.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("resource already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyCart    = errors.New("cart is empty")
)

// InsufficientStockError identifies the cart line that could not be fulfilled.
// Checkout surfaces it after rolling back the whole transaction.
type InsufficientStockError struct {
	Item string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s", e.Item)
}
