package document

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/domain/span"
	"github.com/kailas-cloud/annodoc/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterDocumentMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

// mockRepo stores documents in their JSON form, like the real repositories.
type mockRepo struct {
	docs    map[uuid.UUID][]byte
	saveErr error
	saves   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{docs: make(map[uuid.UUID][]byte)}
}

func (m *mockRepo) Save(_ context.Context, doc *domdoc.Document) (bool, error) {
	if m.saveErr != nil {
		return false, m.saveErr
	}
	data, err := doc.EncodeJSON(domdoc.WithImages())
	if err != nil {
		return false, err
	}
	_, existed := m.docs[doc.ID()]
	m.docs[doc.ID()] = data
	m.saves++
	return !existed, nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*domdoc.Document, error) {
	data, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return domdoc.Unmarshal(data, nil, domdoc.WithID(id))
}

func (m *mockRepo) List(_ context.Context) ([]domdoc.Summary, error) {
	var out []domdoc.Summary
	for id := range m.docs {
		doc, err := m.Get(context.Background(), id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc.Summary())
	}
	return out, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

type mockRecognizer struct {
	pages []string
	err   error
	calls int
}

func (m *mockRecognizer) Recognize(_ context.Context, _ []*pageimage.Image) ([]string, error) {
	m.calls++
	return m.pages, m.err
}

func testImages(t *testing.T, n int) []*pageimage.Image {
	t.Helper()
	out := make([]*pageimage.Image, n)
	for i := range out {
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, i+1, 2))); err != nil {
			t.Fatalf("png.Encode: %v", err)
		}
		img, err := pageimage.FromBytes(buf.Bytes())
		if err != nil {
			t.Fatalf("FromBytes: %v", err)
		}
		out[i] = img
	}
	return out
}

func group(start, end int) *annotation.SpanGroup {
	return annotation.NewSpanGroup(span.New(start, end, 0))
}

func newTestService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	return New(repo, nil, annotation.NewRegistry(), nil), repo
}

func createTwoPages(t *testing.T, svc *Service) *domdoc.Document {
	t.Helper()
	doc, err := svc.Create(context.Background(), []string{"hello world", "second page"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return doc
}

// --- Tests ---

func TestCreate_FromPages(t *testing.T) {
	svc, repo := newTestService(t)
	doc := createTwoPages(t, svc)

	if doc.PageCount() != 2 {
		t.Errorf("PageCount() = %d", doc.PageCount())
	}
	if _, ok := repo.docs[doc.ID()]; !ok {
		t.Error("document not stored")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	tests := []struct {
		name   string
		pages  []string
		images int
	}{
		{"empty", nil, 0},
		{"count mismatch", []string{"a", "b"}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var images []*pageimage.Image
			if tc.images > 0 {
				images = testImages(t, tc.images)
			}
			_, err := svc.Create(context.Background(), tc.pages, images)
			if !errors.Is(err, domain.ErrPrecondition) {
				t.Fatalf("expected ErrPrecondition, got %v", err)
			}
		})
	}
}

func TestCreate_OCR(t *testing.T) {
	rec := &mockRecognizer{pages: []string{"scanned one", "scanned two"}}
	svc := New(newMockRepo(), rec, nil, nil)

	doc, err := svc.Create(context.Background(), nil, testImages(t, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.calls != 1 {
		t.Errorf("expected 1 recognize call, got %d", rec.calls)
	}
	text, _ := doc.Symbols().PageText(1)
	if text != "scanned two" {
		t.Errorf("page 1 text = %q", text)
	}
	if len(doc.Images()) != 2 {
		t.Errorf("images not kept")
	}
}

func TestCreate_OCRUnavailable(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), nil, testImages(t, 1))
	if !errors.Is(err, domain.ErrOCRUnavailable) {
		t.Fatalf("expected ErrOCRUnavailable, got %v", err)
	}
}

func TestCreate_SaveError(t *testing.T) {
	svc, repo := newTestService(t)
	repo.saveErr = errors.New("disk full")
	if _, err := svc.Create(context.Background(), []string{"a"}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestAnnotate_Persists(t *testing.T) {
	svc, _ := newTestService(t)
	doc := createTwoPages(t, svc)

	_, err := svc.Annotate(context.Background(), doc.ID(),
		domdoc.Set("tokens", group(0, 5), group(6, 11), group(12, 18)),
	)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	stored, err := svc.Get(context.Background(), doc.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	tokens, err := stored.GetField("tokens")
	if err != nil {
		t.Fatalf("GetField: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
}

func TestAnnotate_FailureStoresNothing(t *testing.T) {
	svc, repo := newTestService(t)
	doc := createTwoPages(t, svc)
	before := repo.saves

	_, err := svc.Annotate(context.Background(), doc.ID(),
		domdoc.Set("tokens", group(0, 5)),
		domdoc.Set("_hidden", group(0, 5)),
	)
	if !errors.Is(err, domain.ErrInvalidFieldName) {
		t.Fatalf("expected ErrInvalidFieldName, got %v", err)
	}
	if repo.saves != before {
		t.Error("document saved after failed annotate")
	}
	stored, _ := svc.Get(context.Background(), doc.ID())
	if stored.HasField("tokens") {
		t.Error("partial annotate persisted")
	}
}

func TestAnnotate_DuplicateField(t *testing.T) {
	svc, _ := newTestService(t)
	doc := createTwoPages(t, svc)
	if _, err := svc.Annotate(context.Background(), doc.ID(), domdoc.Set("tokens", group(0, 5))); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	_, err := svc.Annotate(context.Background(), doc.ID(), domdoc.Set("tokens", group(6, 11)))
	if !errors.Is(err, domain.ErrInvalidFieldName) {
		t.Fatalf("expected ErrInvalidFieldName, got %v", err)
	}
}

func TestAnnotate_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Annotate(context.Background(), uuid.New(), domdoc.Set("tokens"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceField(t *testing.T) {
	svc, _ := newTestService(t)
	doc := createTwoPages(t, svc)
	ctx := context.Background()

	if _, err := svc.Annotate(ctx, doc.ID(),
		domdoc.Set("tokens", group(0, 5), group(12, 18)),
		domdoc.Set("lines", group(0, 11)),
	); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	updated, err := svc.ReplaceField(ctx, doc.ID(), "tokens", []annotation.Annotation{group(6, 11)})
	if err != nil {
		t.Fatalf("ReplaceField: %v", err)
	}
	if updated.ID() != doc.ID() {
		t.Error("identity changed")
	}
	if strings.Join(updated.Fields(), ",") != "symbols,images,lines,tokens" {
		t.Errorf("Fields() = %v", updated.Fields())
	}

	page1 := []span.Span{span.New(12, 23, 0)}
	hits, err := svc.Find(ctx, doc.ID(), "tokens", page1)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("old index entries survived replace: %v", hits)
	}
}

func TestReplaceField_Reserved(t *testing.T) {
	svc, _ := newTestService(t)
	doc := createTwoPages(t, svc)
	_, err := svc.ReplaceField(context.Background(), doc.ID(), domdoc.FieldSymbols, nil)
	if !errors.Is(err, domain.ErrInvalidFieldName) {
		t.Fatalf("expected ErrInvalidFieldName, got %v", err)
	}
}

func TestFind_ByPage(t *testing.T) {
	svc, _ := newTestService(t)
	doc := createTwoPages(t, svc)
	ctx := context.Background()
	if _, err := svc.Annotate(ctx, doc.ID(), domdoc.Set("tokens", group(0, 5), group(12, 18))); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	hits, err := svc.Find(ctx, doc.ID(), "tokens", []span.Span{span.New(12, 23, 0)})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	g := hits[0].(*annotation.SpanGroup)
	if g.Text != "second" {
		t.Errorf("hit text = %q", g.Text)
	}
}

func TestFind_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	doc := createTwoPages(t, svc)
	ctx := context.Background()

	if _, err := svc.Find(ctx, doc.ID(), "unregistered_field", []span.Span{span.New(0, 1, 0)}); !errors.Is(err, domain.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
	if _, err := svc.Find(ctx, doc.ID(), "tokens", []span.Span{span.New(5, 15, 0)}); !errors.Is(err, domain.ErrInvalidSpan) {
		t.Errorf("expected ErrInvalidSpan for a page-crossing query, got %v", err)
	}
}

func TestExport(t *testing.T) {
	rec := &mockRecognizer{pages: []string{"a"}}
	svc := New(newMockRepo(), rec, nil, nil)
	doc, err := svc.Create(context.Background(), nil, testImages(t, 1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	plain, err := svc.Export(context.Background(), doc.ID(), nil, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if bytes.Contains(plain, []byte(`"images"`)) {
		t.Error("images exported without withImages")
	}
	full, err := svc.Export(context.Background(), doc.ID(), nil, true)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.Contains(full, []byte(`"images"`)) {
		t.Error("images missing with withImages")
	}

	if _, err := svc.Export(context.Background(), doc.ID(), []string{"nope"}, false); !errors.Is(err, domain.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestImport_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	doc := createTwoPages(t, svc)
	ctx := context.Background()
	if _, err := svc.Annotate(ctx, doc.ID(), domdoc.Set("tokens", group(0, 5))); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	data, err := svc.Export(ctx, doc.ID(), nil, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	imported, err := svc.Import(ctx, data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.ID() == doc.ID() {
		t.Error("import reused the source identity")
	}
	again, err := svc.Export(ctx, imported.ID(), nil, false)
	if err != nil {
		t.Fatalf("Export imported: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Errorf("import changed the document:\n%s\n%s", data, again)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	doc := createTwoPages(t, svc)
	if err := svc.Delete(context.Background(), doc.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), doc.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), doc.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	svc, _ := newTestService(t)
	createTwoPages(t, svc)
	createTwoPages(t, svc)
	out, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 summaries, got %d", len(out))
	}
}

func TestErrorReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.NewFieldNameError("x", "dup"), "invalid_field_name"},
		{domain.ErrInvalidSpan, "invalid_span"},
		{domain.ErrConsistency, "consistency"},
		{domain.ErrPrecondition, "precondition"},
		{errors.New("boom"), "other"},
	}
	for _, tc := range tests {
		if got := errorReason(tc.err); got != tc.want {
			t.Errorf("errorReason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
