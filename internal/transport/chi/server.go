package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/logger"
	documentuc "github.com/kailas-cloud/annodoc/internal/usecase/document"
	healthuc "github.com/kailas-cloud/annodoc/internal/usecase/health"
	"github.com/kailas-cloud/annodoc/internal/version"
)

const defaultMaxBodyBytes = 64 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the document HTTP API.
type Server struct {
	documents     *documentuc.Service
	health        *healthuc.Service
	registry      *annotation.Registry
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. reg decodes annotations sent by clients.
func NewServer(
	documents *documentuc.Service,
	health *healthuc.Service,
	reg *annotation.Registry,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		documents:    documents,
		health:       health,
		registry:     reg,
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, CodeInvalidDocument),
		sentinelHandler(domain.ErrInvalidFieldName, http.StatusBadRequest, CodeInvalidFieldName),
		sentinelHandler(domain.ErrInvalidSpan, http.StatusBadRequest, CodeInvalidSpan),
		sentinelHandler(domain.ErrConsistency, http.StatusBadRequest, CodeConsistency),
		sentinelHandler(domain.ErrPrecondition, http.StatusBadRequest, CodePrecondition),
		sentinelHandler(domain.ErrUnknownField, http.StatusNotFound, CodeUnknownField),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrOCRUnavailable, http.StatusNotImplemented, CodeOCRUnavailable),
	}
	return s
}

// WithMaxBodyBytes limits request body size.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/documents", func(r gochi.Router) {
		r.Get("/", s.ListDocuments)
		r.Post("/", s.CreateDocument)
		r.Post("/import", s.ImportDocument)

		r.Route("/{id}", func(r gochi.Router) {
			r.Get("/", s.GetDocument)
			r.Delete("/", s.DeleteDocument)
			r.Get("/export", s.ExportDocument)
			r.Get("/fields", s.ListFields)
			r.Post("/fields", s.AnnotateDocument)
			r.Get("/fields/{field}", s.GetField)
			r.Put("/fields/{field}", s.ReplaceField)
			r.Post("/fields/{field}/find", s.FindAnnotations)
		})
	})
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	sums, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]DocumentResponse, len(sums))
	for i, sum := range sums {
		items[i] = summaryToResponse(sum)
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Items: items, Count: len(items)})
}

// CreateDocument handles POST /documents.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	for i, img := range req.Images {
		if img == nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("image %d is null", i))
			return
		}
	}

	doc, err := s.documents.Create(r.Context(), req.Pages, req.Images)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summaryToResponse(doc.Summary()))
}

// ImportDocument handles POST /documents/import with a body produced by export.
func (s *Server) ImportDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	doc, err := s.documents.Import(r.Context(), data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summaryToResponse(doc.Summary()))
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(doc.Summary()))
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	if err := s.documents.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportDocument handles GET /documents/{id}/export?fields=a,b&images=true.
func (s *Server) ExportDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	var fields []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		fields = strings.Split(raw, ",")
	}
	withImages := false
	if raw := r.URL.Query().Get("images"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "images must be a boolean")
			return
		}
		withImages = v
	}

	data, err := s.documents.Export(r.Context(), id, fields, withImages)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListFields handles GET /documents/{id}/fields.
func (s *Server) ListFields(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"fields": doc.Fields()})
}

// AnnotateDocument handles POST /documents/{id}/fields.
func (s *Server) AnnotateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req AnnotateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "at least one field is required")
		return
	}

	sets := make([]domdoc.FieldSet, len(req.Fields))
	for i, f := range req.Fields {
		anns, err := s.decodeAnnotations(f.Name, f.Annotations)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
		sets[i] = domdoc.Set(f.Name, anns...)
	}

	doc, err := s.documents.Annotate(r.Context(), id, sets...)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(doc.Summary()))
}

// GetField handles GET /documents/{id}/fields/{field}.
func (s *Server) GetField(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	field := gochi.URLParam(r, "field")

	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	anns, err := doc.GetField(field)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeAnnotations(w, r, field, anns)
}

// ReplaceField handles PUT /documents/{id}/fields/{field}.
func (s *Server) ReplaceField(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	field := gochi.URLParam(r, "field")

	var req ReplaceFieldRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	anns, err := s.decodeAnnotations(field, req.Annotations)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	doc, err := s.documents.ReplaceField(r.Context(), id, field, anns)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(doc.Summary()))
}

// FindAnnotations handles POST /documents/{id}/fields/{field}/find.
func (s *Server) FindAnnotations(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	field := gochi.URLParam(r, "field")

	var req FindRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.Spans) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "at least one query span is required")
		return
	}

	anns, err := s.documents.Find(r.Context(), id, field, req.Spans)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeAnnotations(w, r, field, anns)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Get().Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) decodeAnnotations(field string, raws []json.RawMessage) ([]annotation.Annotation, error) {
	decode := s.registry.Decoder(field)
	anns := make([]annotation.Annotation, len(raws))
	for i, raw := range raws {
		a, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q annotation %d: %w", field, i, err)
		}
		anns[i] = a
	}
	return anns, nil
}

func (s *Server) writeAnnotations(w http.ResponseWriter, r *http.Request, field string, anns []annotation.Annotation) {
	out := make([]any, len(anns))
	for i, a := range anns {
		v, err := a.Serialize()
		if err != nil {
			s.handleDomainError(w, r, fmt.Errorf("serialize annotation %d: %w", i, err))
			return
		}
		out[i] = v
	}
	writeJSON(w, http.StatusOK, AnnotationsResponse{Field: field, Annotations: out, Count: len(out)})
}

func documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(gochi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "document id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// handleDomainError maps domain errors to responses. Client errors carry the
// wrapped message, which names the offending field or span; anything
// unmapped is logged and reported as internal.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	l := logger.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err, err.Error()) {
			l.Info("request rejected", zap.Error(err))
			return
		}
	}
	l.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
