package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFieldName signals a reserved, duplicate or colliding field name.
	ErrInvalidFieldName = errors.New("invalid field name")
	// ErrPrecondition signals a call made before its requirements were met.
	ErrPrecondition = errors.New("precondition failed")
	// ErrConsistency signals an annotation bound to a different document.
	ErrConsistency = errors.New("annotation not bound to this document")
	// ErrUnknownField signals a lookup of a field that was never registered.
	ErrUnknownField = errors.New("unknown field")
	// ErrNotFound signals a missing persisted document or file.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSpan signals a span outside the symbol stream or page range.
	ErrInvalidSpan = errors.New("invalid span")
	// ErrInvalidDocument signals a document body that cannot be decoded.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrOCRUnavailable signals that symbols cannot be recognized from images.
	ErrOCRUnavailable = errors.New("ocr unavailable")
)

// FieldNameError wraps ErrInvalidFieldName with the offending name and the rule it broke.
type FieldNameError struct {
	Name   string
	Reason string
}

func (e *FieldNameError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidFieldName.Error(), e.Name, e.Reason)
}

func (e *FieldNameError) Unwrap() error { return ErrInvalidFieldName }

// NewFieldNameError creates an invalid field name error.
func NewFieldNameError(name, reason string) error {
	return &FieldNameError{Name: name, Reason: reason}
}
