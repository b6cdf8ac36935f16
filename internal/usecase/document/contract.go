package document

import (
	"context"

	"github.com/google/uuid"

	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Save(ctx context.Context, doc *domdoc.Document) (created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (*domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Summary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Recognizer produces one text per page image.
type Recognizer interface {
	Recognize(ctx context.Context, images []*pageimage.Image) ([]string, error)
}
