package annodoc

import (
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
	"github.com/kailas-cloud/annodoc/internal/domain/geometry"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/domain/span"
)

// Aliases expose the domain types to callers outside this module.
type (
	Document   = domdoc.Document
	Summary    = domdoc.Summary
	FieldSet   = domdoc.FieldSet
	Annotation = annotation.Annotation
	SpanGroup  = annotation.SpanGroup
	DecodeFunc = annotation.DecodeFunc
	Span       = span.Span
	Box        = geometry.Box
	Image      = pageimage.Image
)

// Reserved field names.
const (
	FieldSymbols = domdoc.FieldSymbols
	FieldImages  = domdoc.FieldImages
)

// Set pairs a field name with its annotations.
func Set(name string, anns ...Annotation) FieldSet { return domdoc.Set(name, anns...) }

// NewSpanGroup creates an unbound span group.
func NewSpanGroup(spans ...Span) *SpanGroup { return annotation.NewSpanGroup(spans...) }

// NewSpan creates a span over [start, end) on page.
func NewSpan(start, end, page int) Span { return span.New(start, end, page) }

// ImageFromBytes wraps encoded image bytes as a page image.
func ImageFromBytes(data []byte) (*Image, error) { return pageimage.FromBytes(data) }
