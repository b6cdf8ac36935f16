//go:build ocr

package ocr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Engine wraps a Tesseract client. Tesseract handles one image at a time,
// so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewEngine creates a Tesseract engine for the given language(s), e.g. "eng+deu".
// The engine should be closed when no longer needed.
func NewEngine(lang string) (*Engine, error) {
	client := gosseract.NewClient()
	if lang != "" {
		if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set ocr language %q: %w", lang, err)
		}
	}
	return &Engine{client: client}, nil
}

// Close releases Tesseract resources.
func (e *Engine) Close() error {
	if e == nil || e.client == nil {
		return nil
	}
	return e.client.Close()
}

// RecognizeImage performs OCR on encoded image data and returns the text
// with surrounding whitespace trimmed.
func (e *Engine) RecognizeImage(data []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}
