// Package ocr turns page images into page texts for a new symbol stream.
//
// Recognition is backed by Tesseract through gosseract when built with the
// "ocr" tag:
//
//	go build -tags ocr ./cmd/annodoc
//
// Without the tag NewEngine fails with domain.ErrOCRUnavailable and the
// service rejects image-only documents.
package ocr

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/metrics"
)

// ImageReader recognizes the text of one encoded image.
type ImageReader interface {
	RecognizeImage(data []byte) (string, error)
}

// Recognizer runs an ImageReader over every page of a document.
type Recognizer struct {
	reader ImageReader
	logger *zap.Logger
}

// NewRecognizer creates a Recognizer. logger may be nil.
func NewRecognizer(reader ImageReader, logger *zap.Logger) *Recognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recognizer{reader: reader, logger: logger}
}

// Recognize returns one text per image, in page order. It stops at the
// first failing page or when ctx is done.
func (r *Recognizer) Recognize(ctx context.Context, images []*pageimage.Image) ([]string, error) {
	pages := make([]string, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := r.reader.RecognizeImage(img.Bytes())
		metrics.OCRPagesTotal.WithLabelValues(metrics.Status(err)).Inc()
		if err != nil {
			return nil, fmt.Errorf("ocr page %d: %w", i, err)
		}
		r.logger.Debug("page recognized",
			zap.Int("page", i),
			zap.Int("width", img.Width()),
			zap.Int("height", img.Height()),
			zap.Int("chars", len([]rune(text))),
		)
		pages = append(pages, text)
	}
	return pages, nil
}

// HealthCheck verifies the reader is usable.
func (r *Recognizer) HealthCheck(context.Context) error {
	if r.reader == nil {
		return fmt.Errorf("no ocr engine configured")
	}
	return nil
}
