package annodoc

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/annodoc/internal/domain"
)

// Operation outcomes used as the status label.
const (
	statusOK       = "ok"
	statusNotFound = "not_found"
	statusRejected = "rejected"
	statusError    = "error"
)

// rejections are caller mistakes, reported apart from storage or OCR failures.
var rejections = []error{
	domain.ErrInvalidFieldName,
	domain.ErrInvalidSpan,
	domain.ErrInvalidDocument,
	domain.ErrConsistency,
	domain.ErrPrecondition,
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownField):
		return statusNotFound
	}
	for _, target := range rejections {
		if errors.Is(err, target) {
			return statusRejected
		}
	}
	return statusError
}

type sdkMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	annotations *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "annodoc",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "annodoc",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		annotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "annodoc",
			Subsystem: "sdk",
			Name:      "annotations_total",
			Help:      "Annotations written by annotate calls or returned by find.",
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.annotations); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one, so two
// clients sharing a registry share series.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("annodoc: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("annodoc: register metric: %w", err)
	}
	return nil
}

// observer logs and measures SDK operations. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// observe records one finished operation. attrs are appended to the log entry.
func (o *observer) observe(op string, start time.Time, err error, attrs ...slog.Attr) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := statusOf(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	args := make([]any, 0, len(attrs)+4)
	args = append(args, slog.String("op", op), slog.Duration("duration", dur))
	for _, a := range attrs {
		args = append(args, a)
	}
	switch status {
	case statusOK:
		o.logger.Debug("operation completed", args...)
	case statusError:
		o.logger.Warn("operation failed", append(args, slog.Any("error", err))...)
	default:
		o.logger.Info("operation rejected", append(args, slog.String("status", status), slog.Any("error", err))...)
	}
}

// annotations adds n to the annotation counter of op.
func (o *observer) annotations(op string, n int) {
	if o == nil || o.metrics == nil || n == 0 {
		return
	}
	o.metrics.annotations.WithLabelValues(op).Add(float64(n))
}
