package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/logger"
	"github.com/kailas-cloud/annodoc/internal/metrics"
)

// InstrumentedRepository wraps a Repository with storage metrics and logging.
type InstrumentedRepository struct {
	inner  Repository
	driver string
	logger *zap.Logger
}

// NewInstrumentedRepository wraps repo. driver labels the storage metrics.
func NewInstrumentedRepository(repo Repository, driver string, l *zap.Logger) *InstrumentedRepository {
	if l == nil {
		l = zap.NewNop()
	}
	return &InstrumentedRepository{inner: repo, driver: driver, logger: l}
}

// Save delegates to the inner repository.
func (r *InstrumentedRepository) Save(ctx context.Context, doc *domdoc.Document) (bool, error) {
	start := time.Now()
	created, err := r.inner.Save(ctx, doc)
	r.observe(ctx, "save", doc.ID(), start, err)
	return created, err
}

// Get delegates to the inner repository.
func (r *InstrumentedRepository) Get(ctx context.Context, id uuid.UUID) (*domdoc.Document, error) {
	start := time.Now()
	doc, err := r.inner.Get(ctx, id)
	r.observe(ctx, "get", id, start, err)
	return doc, err
}

// List delegates to the inner repository.
func (r *InstrumentedRepository) List(ctx context.Context) ([]domdoc.Summary, error) {
	start := time.Now()
	out, err := r.inner.List(ctx)
	r.observe(ctx, "list", uuid.Nil, start, err)
	return out, err
}

// Delete delegates to the inner repository.
func (r *InstrumentedRepository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := r.inner.Delete(ctx, id)
	r.observe(ctx, "delete", id, start, err)
	return err
}

func (r *InstrumentedRepository) observe(ctx context.Context, op string, id uuid.UUID, start time.Time, err error) {
	metrics.StorageOpsTotal.WithLabelValues(r.driver, op, metrics.Status(err)).Inc()

	fields := []zap.Field{
		zap.String("driver", r.driver),
		zap.String("op", op),
		zap.Duration("duration", time.Since(start)),
	}
	if id != uuid.Nil {
		fields = append(fields, zap.String("document_id", id.String()))
	}
	l := logger.FromContext(ctx, r.logger)
	if err != nil {
		l.Warn("Storage operation failed", append(fields, zap.Error(err))...)
		return
	}
	l.Debug("Storage operation completed", fields...)
}
