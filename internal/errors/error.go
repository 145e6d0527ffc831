// Package errors provides the error taxonomy for inventory operations.
package errors

import (
	"errors"
	"fmt"
)

// Sentinels returned by store lookups. Absence of a row is not a failure;
// callers branch on these and decide what it means for their use-case.
var ErrProductNotFound = errors.New("product not found")

// ErrInsufficientStock is returned when the conditional stock decrement
// affects no row, i.e. another transaction consumed the stock first.
var ErrInsufficientStock = errors.New("insufficient stock")

// ValidationError is returned when an input field violates a business rule.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface for ValidationError
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is allows category checking with errors.Is()
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NotFoundError is returned when update/delete/sell reference an unknown sku.
type NotFoundError struct {
	SKU string
}

// Error implements the error interface for NotFoundError
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product with sku %q not found", e.SKU)
}

// Is allows category checking with errors.Is()
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// StockError is returned when a sale requests more units than are available.
type StockError struct {
	SKU       string
	Requested int32
	Available int32
}

// Error implements the error interface for StockError
func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

// Is allows category checking with errors.Is()
func (e *StockError) Is(target error) bool {
	_, ok := target.(*StockError)
	return ok
}

// DataImportError is returned when a bulk-import payload is missing or malformed.
type DataImportError struct {
	Path string
	Err  error
}

// Error implements the error interface for DataImportError
func (e *DataImportError) Error() string {
	return fmt.Sprintf("import from %s failed: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As
func (e *DataImportError) Unwrap() error {
	return e.Err
}

// Is allows category checking with errors.Is()
func (e *DataImportError) Is(target error) bool {
	_, ok := target.(*DataImportError)
	return ok
}

// DatabaseError wraps any storage-engine fault with operation context.
// The persistence layer never lets a raw driver error escape unwrapped.
type DatabaseError struct {
	Op  string
	Err error
}

// Error implements the error interface for DatabaseError
func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As
func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// Is allows category checking with errors.Is()
func (e *DatabaseError) Is(target error) bool {
	_, ok := target.(*DatabaseError)
	return ok
}

// Helper constructors

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(sku string) error {
	return &NotFoundError{SKU: sku}
}

// NewStockError creates a new StockError
func NewStockError(sku string, requested, available int32) error {
	return &StockError{SKU: sku, Requested: requested, Available: available}
}

// NewDataImportError creates a new DataImportError wrapping the cause
func NewDataImportError(path string, err error) error {
	return &DataImportError{Path: path, Err: err}
}

// NewDatabaseError creates a new DatabaseError wrapping the cause
func NewDatabaseError(op string, err error) error {
	return &DatabaseError{Op: op, Err: err}
}

// Category checks for use with errors.As()

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFoundError checks if an error is a NotFoundError
func IsNotFoundError(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsStockError checks if an error is a StockError
func IsStockError(err error) bool {
	var se *StockError
	return errors.As(err, &se)
}

// IsDataImportError checks if an error is a DataImportError
func IsDataImportError(err error) bool {
	var die *DataImportError
	return errors.As(err, &die)
}

// IsDatabaseError checks if an error is a DatabaseError
func IsDatabaseError(err error) bool {
	var dbe *DatabaseError
	return errors.As(err, &dbe)
}
