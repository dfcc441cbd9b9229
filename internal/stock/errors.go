package stock

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes reported to callers alongside the human-readable message.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeUnitMapping       = "UNIT_MAPPING"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeDuplicateRef      = "DUPLICATE_REFERENCE"
	CodeInvalidTransition = "INVALID_STATE_TRANSITION"
	CodeValidation        = "VALIDATION_FAILED"
	CodeTimeout           = "OPERATION_TIMEOUT"
	CodeConflict          = "CONCURRENT_MODIFICATION"
)

// Coded is implemented by every business error of this package.
type Coded interface {
	error
	Code() string
}

var (
	// ErrOperationTimeout is returned when a unit of work exceeds its deadline.
	// The unit of work is abandoned, never retried.
	ErrOperationTimeout = &codedError{code: CodeTimeout, msg: "stock operation timed out"}
	// ErrConflict is returned when a transient conflict survived every retry.
	ErrConflict = &codedError{code: CodeConflict, msg: "stock rows are busy, try again"}
)

type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string { return e.msg }
func (e *codedError) Code() string  { return e.code }

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Code() string { return CodeNotFound }

// UnitMappingError means an ordered unit is not part of the product's
// configured units, or the configuration itself is unusable.
type UnitMappingError struct {
	ProductID string
	UnitID    string
	Reason    string
}

func (e *UnitMappingError) Error() string {
	if e.UnitID == "" {
		return fmt.Sprintf("product %s: %s", e.ProductID, e.Reason)
	}
	return fmt.Sprintf("product %s unit %s: %s", e.ProductID, e.UnitID, e.Reason)
}

func (e *UnitMappingError) Code() string { return CodeUnitMapping }

type InsufficientStockError struct {
	Key       Key
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s in branch %s: available %s, required %s",
		e.Key.ProductID, e.Key.BranchID, e.Available.String(), e.Required.String())
}

func (e *InsufficientStockError) Code() string { return CodeInsufficientStock }

type DuplicateReferenceError struct {
	ReferenceNo string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("reference number %q already exists", e.ReferenceNo)
}

func (e *DuplicateReferenceError) Code() string { return CodeDuplicateRef }

type InvalidStateTransitionError struct {
	OrderID string
	From    string
	Action  string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot %s from status %q", e.OrderID, e.Action, e.From)
}

func (e *InvalidStateTransitionError) Code() string { return CodeInvalidTransition }

// ValidationError wraps malformed input that never reached the ledger.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: field '%s' %s", e.Field, e.Reason)
}

func (e *ValidationError) Code() string { return CodeValidation }

// IsBusiness reports whether err carries one of the typed business errors.
// Business errors are final: callers must not retry them.
func IsBusiness(err error) bool {
	var coded Coded
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code() {
	case CodeTimeout, CodeConflict:
		return false
	}
	return true
}

// CodeOf returns the code carried by err, or "" for untyped errors.
func CodeOf(err error) string {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
