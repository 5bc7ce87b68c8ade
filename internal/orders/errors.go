package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	// ErrCheckoutInProgress is returned while another checkout of the same user holds its lock.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

// InsufficientStockError names the product whose reservation failed.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ProductIDOf extracts the offending product from a not-found or insufficient-stock error.
func ProductIDOf(err error) (string, bool) {
	var nf *ProductNotFoundError
	if errors.As(err, &nf) {
		return nf.ProductID, true
	}
	var is *InsufficientStockError
	if errors.As(err, &is) {
		return is.ProductID, true
	}
	return "", false
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
