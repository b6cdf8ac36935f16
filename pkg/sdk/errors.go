package annodoc

import "github.com/kailas-cloud/annodoc/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidFieldName = domain.ErrInvalidFieldName
	ErrPrecondition     = domain.ErrPrecondition
	ErrConsistency      = domain.ErrConsistency
	ErrUnknownField     = domain.ErrUnknownField
	ErrNotFound         = domain.ErrNotFound
	ErrInvalidSpan      = domain.ErrInvalidSpan
	ErrInvalidDocument  = domain.ErrInvalidDocument
	ErrOCRUnavailable   = domain.ErrOCRUnavailable
)
