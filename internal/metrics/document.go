package metrics

import "github.com/prometheus/client_golang/prometheus"

// Document Prometheus metrics.
var (
	AnnotationsBoundTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "annodoc",
			Name:      "annotations_bound_total",
			Help:      "Total number of annotations bound to documents",
		},
		[]string{"field"},
	)

	AnnotateErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "annodoc",
			Name:      "annotate_errors_total",
			Help:      "Total annotate calls rejected by the document",
		},
		[]string{"reason"},
	)

	FindDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "annodoc",
			Name:      "find_duration_seconds",
			Help:      "Duration of positional queries, including document load",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"field"},
	)

	FindResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "annodoc",
			Name:      "find_results",
			Help:      "Number of annotations returned per query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 6),
		},
	)

	StorageOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "annodoc",
			Name:      "storage_ops_total",
			Help:      "Document storage operations",
		},
		[]string{"driver", "op", "status"},
	)

	OCRPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "annodoc",
			Name:      "ocr_pages_total",
			Help:      "Pages sent to OCR",
		},
		[]string{"status"},
	)
)

var docMetricsRegistered bool

// RegisterDocumentMetrics registers Prometheus document metrics. Must be called once from main.
func RegisterDocumentMetrics() {
	if docMetricsRegistered {
		return
	}
	prometheus.MustRegister(AnnotationsBoundTotal)
	prometheus.MustRegister(AnnotateErrorsTotal)
	prometheus.MustRegister(FindDuration)
	prometheus.MustRegister(FindResults)
	prometheus.MustRegister(StorageOpsTotal)
	prometheus.MustRegister(OCRPagesTotal)
	docMetricsRegistered = true
}

// Status returns the status label for an operation result.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
