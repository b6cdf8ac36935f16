package annodoc

import (
	"context"

	"github.com/google/uuid"

	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/domain/span"
	"github.com/kailas-cloud/annodoc/internal/domain/symbols"
)

// --- documentUseCase mock ---

type mockDocumentUC struct {
	createFn   func(ctx context.Context, pages []string, images []*pageimage.Image) (*domdoc.Document, error)
	importFn   func(ctx context.Context, data []byte) (*domdoc.Document, error)
	getFn      func(ctx context.Context, id uuid.UUID) (*domdoc.Document, error)
	listFn     func(ctx context.Context) ([]domdoc.Summary, error)
	annotateFn func(ctx context.Context, id uuid.UUID, sets ...domdoc.FieldSet) (*domdoc.Document, error)
	replaceFn  func(ctx context.Context, id uuid.UUID, field string, anns []annotation.Annotation) (*domdoc.Document, error)
	findFn     func(ctx context.Context, id uuid.UUID, field string, spans []span.Span) ([]annotation.Annotation, error)
	exportFn   func(ctx context.Context, id uuid.UUID, fields []string, withImages bool) ([]byte, error)
	deleteFn   func(ctx context.Context, id uuid.UUID) error
}

func (m *mockDocumentUC) Create(
	ctx context.Context, pages []string, images []*pageimage.Image,
) (*domdoc.Document, error) {
	return m.createFn(ctx, pages, images)
}

func (m *mockDocumentUC) Import(ctx context.Context, data []byte) (*domdoc.Document, error) {
	return m.importFn(ctx, data)
}

func (m *mockDocumentUC) Get(ctx context.Context, id uuid.UUID) (*domdoc.Document, error) {
	return m.getFn(ctx, id)
}

func (m *mockDocumentUC) List(ctx context.Context) ([]domdoc.Summary, error) {
	return m.listFn(ctx)
}

func (m *mockDocumentUC) Annotate(
	ctx context.Context, id uuid.UUID, sets ...domdoc.FieldSet,
) (*domdoc.Document, error) {
	return m.annotateFn(ctx, id, sets...)
}

func (m *mockDocumentUC) ReplaceField(
	ctx context.Context, id uuid.UUID, field string, anns []annotation.Annotation,
) (*domdoc.Document, error) {
	return m.replaceFn(ctx, id, field, anns)
}

func (m *mockDocumentUC) Find(
	ctx context.Context, id uuid.UUID, field string, spans []span.Span,
) ([]annotation.Annotation, error) {
	return m.findFn(ctx, id, field, spans)
}

func (m *mockDocumentUC) Export(
	ctx context.Context, id uuid.UUID, fields []string, withImages bool,
) ([]byte, error) {
	return m.exportFn(ctx, id, fields, withImages)
}

func (m *mockDocumentUC) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

// --- helpers ---

func testDocument() *domdoc.Document {
	return domdoc.New(symbols.New("Hello world", "Second page"), nil)
}
