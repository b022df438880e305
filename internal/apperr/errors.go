// =============================================================================
// Shop POS - Error Taxonomy
// =============================================================================
//
// This package declares every error the transaction engine can surface.
// Callers compare with errors.Is against the sentinels below and use
// errors.As to pull context out of the typed errors.
//
// CLASSES:
//   - Validation errors: detected before any mutation, safe to retry with
//     corrected input (ProductNotFound, InsufficientStock, EmptyCart, ...)
//   - Persistence errors: a file could not be read or written; in-memory
//     state must be reloaded from disk before continuing
//
// =============================================================================

package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrNegativeStock        = errors.New("stock cannot be negative")
	ErrDuplicateBarcode     = errors.New("barcode already assigned")
	ErrInvalidBarcodeFormat = errors.New("invalid barcode format")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInsufficientPoints   = errors.New("insufficient loyalty points")
	ErrPersistence          = errors.New("persistence failure")

	// ErrAmbiguousMatch is returned when a lookup strategy finds more than
	// one plausible product and the operator has to pick.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	ErrCustomerNotFound    = errors.New("customer not found")
	ErrCustomerExists      = errors.New("customer already exists")
	ErrDuplicateProduct    = errors.New("product already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidInput        = errors.New("invalid input")
)

// =============================================================================
// TYPED ERRORS
// =============================================================================

// StockError describes a stock check that failed for one product.
// Kind is ErrInsufficientStock or ErrNegativeStock.
type StockError struct {
	Kind      error
	Product   string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v for %s: requested %d, available %d", e.Kind, e.Product, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return e.Kind }

// InsufficientStock builds a StockError for a sale that asks for more than is on hand.
func InsufficientStock(product string, requested, available int) error {
	return &StockError{Kind: ErrInsufficientStock, Product: product, Requested: requested, Available: available}
}

// NegativeStock builds a StockError for an adjustment that would go below zero.
func NegativeStock(product string, delta, available int) error {
	return &StockError{Kind: ErrNegativeStock, Product: product, Requested: delta, Available: available}
}

// AmbiguousMatchError lists the candidates a lookup could not decide between.
type AmbiguousMatchError struct {
	Input      string
	Strategy   string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%v for %q via %s: %s", ErrAmbiguousMatch, e.Input, e.Strategy, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousMatchError) Unwrap() error { return ErrAmbiguousMatch }

// PersistenceError wraps a file-system failure with the operation and path.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v: failed to %s %s: %v", ErrPersistence, e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Persistence wraps err as a PersistenceError. A nil err returns nil.
func Persistence(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Path: path, Err: err}
}

// NotFound wraps ErrProductNotFound with the lookup key.
func NotFound(key string) error {
	return fmt.Errorf("%w: %s", ErrProductNotFound, key)
}

// Invalid wraps ErrInvalidInput with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// IsRecoverable reports whether err is a validation-class error that left
// no state behind. Persistence failures and unknown errors are not recoverable.
func IsRecoverable(err error) bool {
	if err == nil || errors.Is(err, ErrPersistence) {
		return false
	}
	for _, target := range []error{
		ErrProductNotFound, ErrInsufficientStock, ErrNegativeStock, ErrDuplicateBarcode,
		ErrInvalidBarcodeFormat, ErrEmptyCart, ErrInsufficientPoints, ErrAmbiguousMatch,
		ErrCustomerNotFound, ErrCustomerExists, ErrDuplicateProduct, ErrTransactionNotFound,
		ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
