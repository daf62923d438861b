package usecase

import (
	"errors"
	"fmt"
	"strings"
)

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

// ErrNotConfigured names an optional integration that is switched off.
type ErrNotConfigured string

func (e ErrNotConfigured) Error() string { return string(e) + " not configured" }

var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("admin access required")
)

// ConflictError reports a unique value already in use or a state change the
// record no longer allows.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func duplicate(field string) *ConflictError {
	return &ConflictError{Field: field, Message: "already exists"}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every failing field of one request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

func (e *ValidationError) Merge(other *ValidationError) {
	if other != nil {
		e.Fields = append(e.Fields, other.Fields...)
	}
}

// Err returns nil when nothing failed.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// InvalidProductError lists cart product ids that are missing or inactive.
type InvalidProductError struct {
	IDs []uint
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("unknown or unavailable products: %v", e.IDs)
}

type InsufficientStockError struct {
	ProductID uint
}

func (e *InsufficientStockError) Error() string {
	if e.ProductID == 0 {
		return "insufficient stock"
	}
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}
