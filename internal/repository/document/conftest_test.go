package document

import (
	"context"
	"path"
	"testing"

	"github.com/kailas-cloud/annodoc/internal/db"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/domain/span"
	"github.com/kailas-cloud/annodoc/internal/domain/symbols"
)

// mockStore implements the consumer interface for tests. Unset hooks fall
// back to an in-memory keyspace.
type mockStore struct {
	kv     map[string][]byte
	hashes map[string]map[string]string

	getFn    func(ctx context.Context, key string) ([]byte, error)
	setFn    func(ctx context.Context, key string, value []byte) error
	delFn    func(ctx context.Context, keys ...string) (int64, error)
	existsFn func(ctx context.Context, key string) (bool, error)
	hsetFn   func(ctx context.Context, key string, fields map[string]string) error
	scanFn   func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	m.kv[key] = value
	return nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.kv[k]; ok {
			delete(m.kv, k)
			n++
		}
		if _, ok := m.hashes[k]; ok {
			delete(m.hashes, k)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	_, ok := m.kv[key]
	return ok, nil
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	h := m.hashes[key]
	if h == nil {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	var keys []string
	for k := range m.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{
		kv:     make(map[string][]byte),
		hashes: make(map[string]map[string]string),
	}
	return New(ms, "annodoc:", annotation.NewRegistry()), ms
}

func testDocument(t *testing.T) *domdoc.Document {
	t.Helper()
	doc := domdoc.New(symbols.New("hello world", "second page"), nil)
	err := doc.Annotate(domdoc.Set("tokens",
		annotation.NewSpanGroup(span.New(0, 5, 0)),
		annotation.NewSpanGroup(span.New(12, 18, 0)),
	))
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	return doc
}
