// Package span describes positions in a document's symbol stream.
package span

import (
	"fmt"

	"github.com/kailas-cloud/annodoc/internal/domain/geometry"
)

// Span is a half-open interval [Start, End) of symbol offsets on one page,
// optionally carrying the region it covers in the page image.
type Span struct {
	Start int           `json:"start"`
	End   int           `json:"end"`
	Page  int           `json:"page"`
	Box   *geometry.Box `json:"box,omitempty"`
}

// New creates a span over [start, end) on the given page.
func New(start, end, page int) Span {
	return Span{Start: start, End: end, Page: page}
}

// WithBox creates a span that covers only a layout region.
func WithBox(b geometry.Box) Span {
	return Span{Page: b.Page, Box: &b}
}

// Len returns the number of symbols covered.
func (s Span) Len() int { return s.End - s.Start }

// IsEmpty reports whether the span covers no symbols.
func (s Span) IsEmpty() bool { return s.End <= s.Start }

// Validate checks that the interval is well formed.
func (s Span) Validate() error {
	if s.Start < 0 || s.End < s.Start {
		return fmt.Errorf("span [%d,%d) is malformed", s.Start, s.End)
	}
	if s.Box != nil && (s.Box.Width < 0 || s.Box.Height < 0) {
		return fmt.Errorf("span box has negative size")
	}
	return nil
}

// Overlaps reports whether both spans share at least one symbol on the same page.
func (s Span) Overlaps(other Span) bool {
	if s.Page != other.Page || s.IsEmpty() || other.IsEmpty() {
		return false
	}
	return s.Start < other.End && other.Start < s.End
}

// Intersects reports whether the spans overlap in symbols or, when both
// carry boxes, in layout.
func (s Span) Intersects(other Span) bool {
	if s.Overlaps(other) {
		return true
	}
	if s.Box == nil || other.Box == nil {
		return false
	}
	return s.Box.Intersects(*other.Box)
}

// Clone returns a deep copy.
func (s Span) Clone() Span {
	if s.Box != nil {
		b := *s.Box
		s.Box = &b
	}
	return s
}
