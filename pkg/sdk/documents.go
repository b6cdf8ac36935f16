package annodoc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DocumentService manages stored documents.
type DocumentService struct {
	svc documentUseCase
	obs *observer
}

// Create stores a new document. pages are the page texts; images are
// optional page images. With images but no pages, the texts are recognized
// with OCR (see WithOCR).
func (s *DocumentService) Create(ctx context.Context, pages []string, images []*Image) (_ *Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.create", start, err) }()

	doc, err := s.svc.Create(ctx, pages, images)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// Import stores a document from the JSON produced by Export under a new ID.
func (s *DocumentService) Import(ctx context.Context, data []byte) (_ *Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.import", start, err) }()

	doc, err := s.svc.Import(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("import document: %w", err)
	}
	return doc, nil
}

// Get loads a document by ID.
func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (_ *Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.get", start, err, docAttr(id)) }()

	doc, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns summaries of all stored documents.
func (s *DocumentService) List(ctx context.Context) (_ []Summary, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.list", start, err) }()

	out, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

// Annotate registers new fields and binds their annotations. Nothing is
// stored when any field fails.
func (s *DocumentService) Annotate(ctx context.Context, id uuid.UUID, sets ...FieldSet) (_ *Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.annotate", start, err, docAttr(id)) }()

	doc, err := s.svc.Annotate(ctx, id, sets...)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	n := 0
	for _, set := range sets {
		n += len(set.Annotations)
	}
	s.obs.annotations("document.annotate", n)
	return doc, nil
}

// ReplaceField sets anns as the only content of field, creating the field
// if needed.
func (s *DocumentService) ReplaceField(
	ctx context.Context, id uuid.UUID, field string, anns ...Annotation,
) (_ *Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.replace_field", start, err, docAttr(id)) }()

	doc, err := s.svc.ReplaceField(ctx, id, field, anns)
	if err != nil {
		return nil, fmt.Errorf("replace field: %w", err)
	}
	return doc, nil
}

// Find returns the annotations of field overlapping any of the query spans.
// Span pages are derived from their offsets.
func (s *DocumentService) Find(
	ctx context.Context, id uuid.UUID, field string, spans ...Span,
) (_ []Annotation, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.find", start, err, docAttr(id)) }()

	out, err := s.svc.Find(ctx, id, field, spans)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	s.obs.annotations("document.find", len(out))
	return out, nil
}

// Export returns the JSON form of a document. Empty fields exports all of
// them; images are embedded only with withImages.
func (s *DocumentService) Export(
	ctx context.Context, id uuid.UUID, fields []string, withImages bool,
) (_ []byte, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.export", start, err, docAttr(id)) }()

	data, err := s.svc.Export(ctx, id, fields, withImages)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

// Delete removes a document.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.delete", start, err, docAttr(id)) }()

	if err = s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func docAttr(id uuid.UUID) slog.Attr {
	return slog.String("document_id", id.String())
}
