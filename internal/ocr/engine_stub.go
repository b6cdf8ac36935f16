//go:build !ocr

package ocr

import (
	"fmt"

	"github.com/kailas-cloud/annodoc/internal/domain"
)

// Engine is the stand-in used when the binary is built without the "ocr"
// tag. Rebuild with -tags ocr (Tesseract required) to recognize images.
type Engine struct{}

// NewEngine reports that OCR support is not compiled in.
func NewEngine(string) (*Engine, error) {
	return nil, fmt.Errorf("rebuild with -tags ocr: %w", domain.ErrOCRUnavailable)
}

// Close is a no-op. It is safe to call on a nil engine.
func (e *Engine) Close() error {
	return nil
}

// RecognizeImage always fails with domain.ErrOCRUnavailable.
func (e *Engine) RecognizeImage([]byte) (string, error) {
	return "", domain.ErrOCRUnavailable
}
