/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error kinds in one place. Every ledger operation is all-or-nothing:
  when one of these errors is returned, nothing was written.

ERROR CATEGORIES:
  1. Client errors   - bad quantities, amounts, methods, periods
  2. Conflicts       - not enough stock, history blocks a delete/reversal
  3. Not found       - unknown product/partner/order/report/batch

USAGE:
  Callers match the sentinel with errors.Is and read the context with
  errors.As:

    var short *ledger.InsufficientStockError
    if errors.As(err, &short) {
        fmt.Printf("only %d left\n", short.Available)
    }

SEE ALSO:
  - service.go: returns these errors
  - api/errors.go: maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientStock is returned when an order or sample asks for more
	// than the warehouse holds.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientPartnerStock is returned when a resale report exceeds
	// what the partner still holds for that product.
	ErrInsufficientPartnerStock = errors.New("insufficient partner stock")

	// ErrInvalidQuantity is returned for zero or negative quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidAmount is returned for negative prices or non-positive sale values.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidPaymentMethod is returned for methods other than QRIS, Transfer or Piutang.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrEntityNotFound is returned when a referenced id doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrProductInactive is returned when ordering a deactivated product.
	ErrProductInactive = errors.New("product inactive")

	// ErrOrderConsumed is returned when reversing an order whose batches were
	// drawn by resale reports that are still on record.
	ErrOrderConsumed = errors.New("order consumed by resale reports")

	// ErrPartnerHasHistory is returned when deleting a partner with orders.
	ErrPartnerHasHistory = errors.New("partner has order history")

	// ErrInvalidPeriod is returned when a period ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrValidation is returned for malformed input not covered above.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type InsufficientStockError struct {
	ProductID ProductID
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type InsufficientPartnerStockError struct {
	PartnerID PartnerID
	ProductID ProductID
	Requested int64
	Available int64
}

func (e *InsufficientPartnerStockError) Error() string {
	return fmt.Sprintf("partner %s holds %d of product %s, resale of %d requested",
		e.PartnerID, e.Available, e.ProductID, e.Requested)
}

func (e *InsufficientPartnerStockError) Unwrap() error { return ErrInsufficientPartnerStock }

// NotFoundError names the kind of entity that is missing.
type NotFoundError struct {
	Kind string // "product", "partner", "order", "batch", "resale report", "sample"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrEntityNotFound }

type OrderConsumedError struct {
	OrderID   OrderID
	ReportIDs []ReportID
}

func (e *OrderConsumedError) Error() string {
	ids := make([]string, len(e.ReportIDs))
	for i, id := range e.ReportIDs {
		ids[i] = string(id)
	}
	return fmt.Sprintf("order %s was drawn by resale reports [%s]; reverse them first",
		e.OrderID, strings.Join(ids, ", "))
}

func (e *OrderConsumedError) Unwrap() error { return ErrOrderConsumed }

type ProductInactiveError struct {
	ProductID ProductID
}

func (e *ProductInactiveError) Error() string {
	return fmt.Sprintf("product %s is inactive", e.ProductID)
}

func (e *ProductInactiveError) Unwrap() error { return ErrProductInactive }

func notFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrValidation)
}

// IsConflict returns true if the request was valid but the current ledger
// state does not allow it.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientPartnerStock) ||
		errors.Is(err, ErrProductInactive) ||
		errors.Is(err, ErrOrderConsumed) ||
		errors.Is(err, ErrPartnerHasHistory)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
