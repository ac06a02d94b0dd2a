package types

import (
	"errors"
	"fmt"
	"strings"
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Record operation errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidID   = errors.New("invalid record ID")
	ErrInvalidData = errors.New("invalid record data")
	ErrStorage     = errors.New("storage failure")
)

// Backup errors. ErrRestore means the document was rejected and nothing was
// changed; ErrRestoreIncomplete means the apply phase failed part way.
var (
	ErrRestore           = errors.New("backup document rejected")
	ErrRestoreIncomplete = errors.New("restore failed, data may be inconsistent")
)

// FieldError names one field that failed validation and the rule it broke.
type FieldError struct {
	Field string
	Rule  string
}

// ValidationError lists the fields of a record that failed validation.
// It matches ErrInvalidData with errors.Is.
type ValidationError struct {
	Kind   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " (" + f.Rule + ")"
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidData }

// Has reports whether field is among the failed fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// StorageError reports a failure of the underlying storage medium. It matches
// both ErrStorage and the wrapped cause with errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// NewStorageError wraps err as a StorageError for op. A nil err yields nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
