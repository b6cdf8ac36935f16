package annodoc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
)

func TestNew_NoStorage(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no storage configured")
	}
}

func TestClient_DirRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if h := client.Health(ctx); h.Status != "ok" || h.Checks["storage"] != "ok" {
		t.Errorf("unexpected health: %+v", h)
	}

	docs := client.Documents()
	doc, err := docs.Create(ctx, []string{"Hello world", "Second page"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = docs.Annotate(ctx, doc.ID(), Set("tokens",
		NewSpanGroup(NewSpan(0, 5, 0)),
		NewSpanGroup(NewSpan(6, 11, 0)),
		NewSpanGroup(NewSpan(12, 18, 1)),
	))
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	hits, err := docs.Find(ctx, doc.ID(), "tokens", NewSpan(3, 8, 0))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if g, ok := hits[0].(*SpanGroup); !ok || g.Text != "Hello" {
		t.Errorf("unexpected first hit: %#v", hits[0])
	}

	data, err := docs.Export(ctx, doc.ID(), nil, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	copied, err := docs.Import(ctx, data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	sums, err := docs.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(sums))
	}

	if err := docs.Delete(ctx, copied.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := docs.Get(ctx, copied.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_WithDecoder(t *testing.T) {
	ctx := context.Background()
	calls := 0
	decode := func(raw json.RawMessage) (Annotation, error) {
		calls++
		return annotation.DecodeSpanGroup(raw)
	}

	client, err := New(ctx, WithDir(t.TempDir()), WithImagesInJSON(), WithDecoder("labels", decode))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	docs := client.Documents()
	doc, err := docs.Create(ctx, []string{"Hello world"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := docs.Annotate(ctx, doc.ID(), Set("labels", NewSpanGroup(NewSpan(0, 5, 0)))); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	calls = 0
	loaded, err := docs.Get(ctx, doc.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 1 {
		t.Errorf("decoder calls = %d, want 1", calls)
	}
	anns, err := loaded.GetField("labels")
	if err != nil || len(anns) != 1 {
		t.Fatalf("GetField = %v, %v", anns, err)
	}
}

func TestClient_Close_Idempotent(t *testing.T) {
	closed := 0
	c := &Client{closers: []func(){func() { closed++ }, nil}}
	c.Close()
	c.Close()
	if closed != 1 {
		t.Errorf("closed %d times, want 1", closed)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithRedis("localhost:6380", "pass").apply(cfg)
	if len(cfg.addrs) != 1 || cfg.addrs[0] != "localhost:6380" {
		t.Errorf("addrs = %v", cfg.addrs)
	}
	if cfg.password != "pass" {
		t.Errorf("password = %q, want pass", cfg.password)
	}

	WithKeyPrefix("test:").apply(cfg)
	if cfg.keyPrefix != "test:" {
		t.Errorf("keyPrefix = %q, want test:", cfg.keyPrefix)
	}

	WithDir("/tmp/docs").apply(cfg)
	WithImagesInJSON().apply(cfg)
	if cfg.dir != "/tmp/docs" || !cfg.imagesInJSON {
		t.Errorf("dir = %q imagesInJSON = %v", cfg.dir, cfg.imagesInJSON)
	}

	WithOCR("eng+deu").apply(cfg)
	if cfg.ocrLanguage != "eng+deu" {
		t.Errorf("ocrLanguage = %q", cfg.ocrLanguage)
	}

	WithDecoder("a", annotation.DecodeSpanGroup).apply(cfg)
	WithFallbackDecoder(annotation.DecodeSpanGroup).apply(cfg)
	if len(cfg.decoders) != 1 || cfg.fallback == nil {
		t.Error("expected decoders to be set")
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	// nil observer should not panic.
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("document.get", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("document.get", time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "annodoc_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("annodoc_sdk_operations_total not found")
	}
}

func TestObserver_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("expected the registered counter to be reused")
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil)
	obs.observe("test.op", time.Now(), errors.New("test error"))
}
