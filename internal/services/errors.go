package services

import (
	"errors"
	"fmt"
)

// Business errors surfaced to callers. All of them are recoverable: the
// handler re-renders the cart with the specific problem attached.
// Anything else coming out of the services is an infrastructure error
// and should be treated as a 500.
var (
	ErrEmptyCart               = errors.New("empty_cart")
	ErrConcurrentStockConflict = errors.New("stock_conflict")
	ErrCartLineNotFound        = errors.New("cart_line_not_found")
	ErrProductNotFound         = errors.New("product_not_found")
)

// InsufficientStockError reports one cart line asking for more than the
// ledger holds. Checkout validation returns one per offending line.
type InsufficientStockError struct {
	ProductID uint   `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	if e.Size != "" {
		return fmt.Sprintf("insufficient stock for product %d size %s: requested %d, available %d",
			e.ProductID, e.Size, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ProductSizeMismatchError means a cart line references a size the
// product no longer declares (owner changed the size set after the line
// was added).
type ProductSizeMismatchError struct {
	ProductID uint   `json:"product_id"`
	Size      string `json:"size"`
}

func (e *ProductSizeMismatchError) Error() string {
	return fmt.Sprintf("product %d has no size %q", e.ProductID, e.Size)
}

// StoreNotSellableError marks a line whose store is not approved and
// active; reported alongside stock errors so the caller sees every
// problem in one pass.
type StoreNotSellableError struct {
	ProductID uint   `json:"product_id"`
	StoreID   uint   `json:"store_id"`
	Status    string `json:"status"`
}

func (e *StoreNotSellableError) Error() string {
	return fmt.Sprintf("store %d of product %d is not sellable (status %s)", e.StoreID, e.ProductID, e.Status)
}

// LineError ties a validation error to the cart line it concerns.
type LineError struct {
	LineID uint
	Err    error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.LineID, e.Err) }
func (e *LineError) Unwrap() error { return e.Err }
