package document

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/domain/span"
	"github.com/kailas-cloud/annodoc/internal/domain/symbols"
	"github.com/kailas-cloud/annodoc/internal/logger"
	"github.com/kailas-cloud/annodoc/internal/metrics"
)

// Service handles document lifecycle: creation, annotation, queries and export.
// Documents are not safe for concurrent mutation, so every read-modify-write
// cycle runs under one lock.
type Service struct {
	mu         sync.Mutex
	repo       Repository
	recognizer Recognizer
	registry   *annotation.Registry
	logger     *zap.Logger
}

// New creates a document service. recognizer may be nil when OCR is disabled.
func New(repo Repository, recognizer Recognizer, reg *annotation.Registry, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{repo: repo, recognizer: recognizer, registry: reg, logger: l}
}

// Create builds and stores a document from page texts and optional page images.
// With images but no texts, the texts are recognized from the images.
func (s *Service) Create(ctx context.Context, pages []string, images []*pageimage.Image) (*domdoc.Document, error) {
	if len(pages) == 0 && len(images) == 0 {
		return nil, fmt.Errorf("document needs pages or images: %w", domain.ErrPrecondition)
	}
	if len(pages) > 0 && len(images) > 0 && len(pages) != len(images) {
		return nil, fmt.Errorf("%d pages but %d images: %w", len(pages), len(images), domain.ErrPrecondition)
	}

	if len(pages) == 0 {
		if s.recognizer == nil {
			return nil, fmt.Errorf("recognize pages: %w", domain.ErrOCRUnavailable)
		}
		var err error
		pages, err = s.recognizer.Recognize(ctx, images)
		if err != nil {
			return nil, fmt.Errorf("recognize pages: %w", err)
		}
	}

	doc := domdoc.New(symbols.New(pages...), images)
	if _, err := s.repo.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	logger.FromContext(ctx, s.logger).Info("Document created",
		zap.String("document_id", doc.ID().String()),
		zap.Int("pages", doc.PageCount()),
		zap.Int("images", len(images)),
		zap.Int("symbols", doc.Symbols().Len()),
	)
	return doc, nil
}

// Import stores a document from its JSON form, as produced by Export. The
// imported document gets a new identity.
func (s *Service) Import(ctx context.Context, data []byte) (*domdoc.Document, error) {
	doc, err := domdoc.Unmarshal(data, s.registry)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w: %w", domain.ErrInvalidDocument, err)
	}
	if _, err := s.repo.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	logger.FromContext(ctx, s.logger).Info("Document imported",
		zap.String("document_id", doc.ID().String()),
		zap.Strings("fields", doc.Fields()),
	)
	return doc, nil
}

// Get retrieves a document by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domdoc.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns summaries of all stored documents.
func (s *Service) List(ctx context.Context) ([]domdoc.Summary, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

// Annotate registers new fields on a stored document and binds their
// annotations. Nothing is stored when any field fails.
func (s *Service) Annotate(ctx context.Context, id uuid.UUID, sets ...domdoc.FieldSet) (*domdoc.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return s.annotate(ctx, doc, sets)
}

// ReplaceField binds anns as the new content of field, dropping any previous
// annotations and index entries of that field.
func (s *Service) ReplaceField(
	ctx context.Context, id uuid.UUID, field string, anns []annotation.Annotation,
) (*domdoc.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc.HasField(field) {
		if field == domdoc.FieldSymbols || field == domdoc.FieldImages {
			return nil, domain.NewFieldNameError(field, "reserved field")
		}
		doc, err = s.without(doc, field)
		if err != nil {
			return nil, fmt.Errorf("drop field %q: %w", field, err)
		}
	}
	return s.annotate(ctx, doc, []domdoc.FieldSet{domdoc.Set(field, anns...)})
}

func (s *Service) annotate(ctx context.Context, doc *domdoc.Document, sets []domdoc.FieldSet) (*domdoc.Document, error) {
	l := logger.FromContext(logger.WithDocument(ctx, doc.ID().String(), s.logger))

	if err := doc.Annotate(sets...); err != nil {
		metrics.AnnotateErrorsTotal.WithLabelValues(errorReason(err)).Inc()
		l.Info("Annotate rejected", zap.Error(err))
		return nil, fmt.Errorf("annotate: %w", err)
	}
	if _, err := s.repo.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	for _, set := range sets {
		metrics.AnnotationsBoundTotal.WithLabelValues(set.Name).Add(float64(len(set.Annotations)))
		l.Debug("Field annotated",
			zap.String("field", set.Name),
			zap.Int("annotations", len(set.Annotations)),
		)
	}
	return doc, nil
}

// without rebuilds doc from its JSON form minus one field, keeping identity and images.
func (s *Service) without(doc *domdoc.Document, field string) (*domdoc.Document, error) {
	var keep []string
	for _, f := range doc.Fields() {
		if f != field && f != domdoc.FieldImages {
			keep = append(keep, f)
		}
	}
	data, err := doc.EncodeJSON(domdoc.Fields(keep...))
	if err != nil {
		return nil, err
	}
	rebuilt, err := domdoc.Unmarshal(data, s.registry, domdoc.WithID(doc.ID()))
	if err != nil {
		return nil, err
	}
	rebuilt.SetImages(doc.Images())
	return rebuilt, nil
}

// Find returns the annotations of field that share a page with one of the
// query spans and overlap it. Query spans are resolved against the document
// symbols first, so callers may leave Page unset.
func (s *Service) Find(
	ctx context.Context, id uuid.UUID, field string, spans []span.Span,
) ([]annotation.Annotation, error) {
	start := time.Now()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	resolved := make([]span.Span, len(spans))
	for i, sp := range spans {
		r, err := doc.Symbols().Resolve(sp)
		if err != nil {
			return nil, fmt.Errorf("query span %d: %w: %w", i, domain.ErrInvalidSpan, err)
		}
		resolved[i] = r
	}

	out, err := doc.Find(annotation.NewSpanGroup(resolved...), field)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	metrics.FindDuration.WithLabelValues(field).Observe(time.Since(start).Seconds())
	metrics.FindResults.Observe(float64(len(out)))
	return out, nil
}

// Export returns the JSON form of a document. fields limits the output;
// images are included only when withImages is set.
func (s *Service) Export(ctx context.Context, id uuid.UUID, fields []string, withImages bool) ([]byte, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	var opts []domdoc.JSONOption
	if len(fields) > 0 {
		opts = append(opts, domdoc.Fields(fields...))
	}
	if withImages {
		opts = append(opts, domdoc.WithImages())
	}
	data, err := doc.EncodeJSON(opts...)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

// Delete removes a document.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	logger.FromContext(ctx, s.logger).Info("Document deleted", zap.String("document_id", id.String()))
	return nil
}

// errorReason maps an annotate failure to a metrics label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidFieldName):
		return "invalid_field_name"
	case errors.Is(err, domain.ErrInvalidSpan):
		return "invalid_span"
	case errors.Is(err, domain.ErrConsistency):
		return "consistency"
	case errors.Is(err, domain.ErrPrecondition):
		return "precondition"
	default:
		return "other"
	}
}
