package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Envs(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "test"} {
		l, err := NewLogger(env, Options{})
		if err != nil {
			t.Errorf("NewLogger(%q): %v", env, err)
			continue
		}
		if l == nil {
			t.Errorf("NewLogger(%q) returned nil", env)
		}
	}
}

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging", Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger("local", Options{Level: "loud"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewLogger_Format(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatConsole} {
		if _, err := NewLogger("dev", Options{Level: "warn", Format: format}); err != nil {
			t.Errorf("format %q: %v", format, err)
		}
	}
	if _, err := NewLogger("prod", Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestFromContext_Fallbacks(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) == nil {
		t.Fatal("expected nop logger")
	}
	fb := zap.NewExample()
	if FromContext(ctx, fb) != fb {
		t.Error("fallback not returned")
	}
	stored := zap.NewNop()
	if FromContext(ContextWithLogger(ctx, stored), fb) != stored {
		t.Error("stored logger not returned")
	}
}

func TestWithDocument_AddsField(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithDocument(context.Background(), "doc-1", zap.New(core))
	FromContext(ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["document_id"]; got != "doc-1" {
		t.Errorf("document_id = %v", got)
	}
}
