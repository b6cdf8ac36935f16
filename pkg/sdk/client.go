package annodoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	dbRedis "github.com/kailas-cloud/annodoc/internal/db/redis"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/domain/span"
	"github.com/kailas-cloud/annodoc/internal/ocr"
	documentrepo "github.com/kailas-cloud/annodoc/internal/repository/document"
	documentuc "github.com/kailas-cloud/annodoc/internal/usecase/document"
	healthuc "github.com/kailas-cloud/annodoc/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "annodoc:"
)

// Internal interfaces for substitution in tests.
type documentUseCase interface {
	Create(ctx context.Context, pages []string, images []*pageimage.Image) (*domdoc.Document, error)
	Import(ctx context.Context, data []byte) (*domdoc.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Summary, error)
	Annotate(ctx context.Context, id uuid.UUID, sets ...domdoc.FieldSet) (*domdoc.Document, error)
	ReplaceField(ctx context.Context, id uuid.UUID, field string, anns []annotation.Annotation) (*domdoc.Document, error)
	Find(ctx context.Context, id uuid.UUID, field string, spans []span.Span) ([]annotation.Annotation, error)
	Export(ctx context.Context, id uuid.UUID, fields []string, withImages bool) ([]byte, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type storagePinger interface {
	Ping(ctx context.Context) error
}

// Client is the annodoc SDK entry point.
type Client struct {
	storage   storagePinger
	closers   []func()
	docSvc    documentUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client over the configured storage.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dir == "" && len(cfg.addrs) == 0 {
		return nil, errors.New("annodoc: storage required (use WithDir or WithRedis)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	reg := buildRegistry(cfg)
	repo, storage, closeStore, err := createRepository(ctx, cfg, reg)
	if err != nil {
		return nil, err
	}
	c := &Client{storage: storage, closers: []func(){closeStore}, obs: obs}

	// Pass nil interface (not typed nil pointer!) when OCR is not configured.
	var recognizer documentuc.Recognizer
	var ocrChecker healthuc.OCRChecker
	if cfg.ocrLanguage != "" {
		engine, err := ocr.NewEngine(cfg.ocrLanguage)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("annodoc: start ocr: %w", err)
		}
		c.closers = append(c.closers, func() { _ = engine.Close() })
		rec := ocr.NewRecognizer(engine, nil)
		recognizer = rec
		ocrChecker = rec
	}

	c.docSvc = documentuc.New(repo, recognizer, reg, nil)
	c.healthSvc = healthuc.New(storage, ocrChecker)
	return c, nil
}

func buildRegistry(cfg *clientConfig) *annotation.Registry {
	reg := annotation.NewRegistry()
	for _, d := range cfg.decoders {
		reg.Register(d.field, d.fn)
	}
	if cfg.fallback != nil {
		reg.WithFallback(cfg.fallback)
	}
	return reg
}

func createRepository(
	ctx context.Context, cfg *clientConfig, reg *annotation.Registry,
) (documentuc.Repository, storagePinger, func(), error) {
	if len(cfg.addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("annodoc: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, nil, fmt.Errorf("annodoc: database not ready: %w", err)
		}
		return documentrepo.New(s, cfg.keyPrefix, reg), s, s.Close, nil
	}

	repo, err := documentrepo.NewDirRepo(cfg.dir, cfg.imagesInJSON, reg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("annodoc: open dir: %w", err)
	}
	return repo, repo, func() {}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if c.closers[i] != nil {
			c.closers[i]()
		}
	}
	c.closers = nil
}

// Ping checks storage connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.storage.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Documents returns the document service.
func (c *Client) Documents() *DocumentService {
	return &DocumentService{svc: c.docSvc, obs: c.obs}
}
