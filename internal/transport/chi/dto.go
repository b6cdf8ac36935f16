package chi

import (
	"encoding/json"

	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/domain/span"
)

// ErrorCode is a machine-readable error category.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeInvalidFieldName ErrorCode = "invalid_field_name"
	CodeInvalidSpan      ErrorCode = "invalid_span"
	CodeInvalidDocument  ErrorCode = "invalid_document"
	CodeConsistency      ErrorCode = "consistency_error"
	CodePrecondition     ErrorCode = "precondition_failed"
	CodeNotFound         ErrorCode = "document_not_found"
	CodeUnknownField     ErrorCode = "unknown_field"
	CodeOCRUnavailable   ErrorCode = "ocr_unavailable"
	CodeInternal         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CreateDocumentRequest is the body of POST /documents. Images are base64
// encoded; when pages is empty they are recognized with OCR.
type CreateDocumentRequest struct {
	Pages  []string           `json:"pages"`
	Images []*pageimage.Image `json:"images"`
}

// DocumentResponse describes a stored document.
type DocumentResponse struct {
	ID     string   `json:"id"`
	Pages  int      `json:"pages"`
	Images int      `json:"images"`
	Fields []string `json:"fields"`
}

// DocumentListResponse is the body of GET /documents.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Count int                `json:"count"`
}

// FieldRequest carries one named annotation sequence.
type FieldRequest struct {
	Name        string            `json:"name"`
	Annotations []json.RawMessage `json:"annotations"`
}

// AnnotateRequest is the body of POST /documents/{id}/fields. Fields are
// registered in list order.
type AnnotateRequest struct {
	Fields []FieldRequest `json:"fields"`
}

// ReplaceFieldRequest is the body of PUT /documents/{id}/fields/{field}.
type ReplaceFieldRequest struct {
	Annotations []json.RawMessage `json:"annotations"`
}

// FindRequest is the body of POST /documents/{id}/fields/{field}/find.
// Span pages are resolved server-side.
type FindRequest struct {
	Spans []span.Span `json:"spans"`
}

// AnnotationsResponse lists serialized annotations of one field.
type AnnotationsResponse struct {
	Field       string `json:"field"`
	Annotations []any  `json:"annotations"`
	Count       int    `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

func summaryToResponse(s domdoc.Summary) DocumentResponse {
	fields := s.Fields
	if fields == nil {
		fields = []string{}
	}
	return DocumentResponse{
		ID:     s.ID.String(),
		Pages:  s.Pages,
		Images: s.Images,
		Fields: fields,
	}
}
