// Package indexer provides page-bounded positional indexes over annotations.
package indexer

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	"github.com/kailas-cloud/annodoc/internal/domain/span"
)

type entry struct {
	span span.Span
	seq  int
}

// SpanGroupIndexer indexes spanned annotations by page. Within a page,
// entries are kept sorted by span start so interval lookups stop early.
type SpanGroupIndexer struct {
	pages [][]entry
	items []annotation.Annotation
}

var _ annotation.Indexer = (*SpanGroupIndexer)(nil)

// NewSpanGroupIndexer creates an index for a document with pageCount pages.
func NewSpanGroupIndexer(pageCount int) *SpanGroupIndexer {
	if pageCount < 0 {
		pageCount = 0
	}
	return &SpanGroupIndexer{pages: make([][]entry, pageCount)}
}

// New returns a SpanGroupIndexer as an annotation.Indexer. It matches the
// document package's indexer factory signature.
func New(pageCount int) annotation.Indexer {
	return NewSpanGroupIndexer(pageCount)
}

// PageCount returns the number of pages the index covers.
func (x *SpanGroupIndexer) PageCount() int { return len(x.pages) }

// Len returns the number of indexed annotations.
func (x *SpanGroupIndexer) Len() int { return len(x.items) }

// Insert adds an annotation. It must be Spanned and every span must lie on
// a page inside the index. Nothing is inserted on error.
func (x *SpanGroupIndexer) Insert(a annotation.Annotation) error {
	sp, ok := a.(annotation.Spanned)
	if !ok {
		return fmt.Errorf("annotation %T has no spans: %w", a, domain.ErrPrecondition)
	}
	spans := sp.Spans()
	for _, s := range spans {
		if s.Page < 0 || s.Page >= len(x.pages) {
			return fmt.Errorf("span page %d outside %d pages: %w", s.Page, len(x.pages), domain.ErrInvalidSpan)
		}
	}

	seq := len(x.items)
	x.items = append(x.items, a)
	for _, s := range spans {
		page := x.pages[s.Page]
		i := sort.Search(len(page), func(i int) bool { return page[i].span.Start > s.Start })
		page = append(page, entry{})
		copy(page[i+1:], page[i:])
		page[i] = entry{span: s, seq: seq}
		x.pages[s.Page] = page
	}
	return nil
}

// Index returns the annotations with a span intersecting any span of the
// query, in insertion order and without duplicates.
func (x *SpanGroupIndexer) Index(query annotation.Spanned) []annotation.Annotation {
	if query == nil {
		return nil
	}
	hits := make(map[int]struct{})
	for _, q := range query.Spans() {
		if q.Page < 0 || q.Page >= len(x.pages) {
			continue
		}
		for _, e := range x.pages[q.Page] {
			// Sorted by start: once past the query end only box matches remain.
			if q.Box == nil && !q.IsEmpty() && e.span.Start >= q.End {
				break
			}
			if q.Intersects(e.span) {
				hits[e.seq] = struct{}{}
			}
		}
	}

	seqs := make([]int, 0, len(hits))
	for s := range hits {
		seqs = append(seqs, s)
	}
	sort.Ints(seqs)
	out := make([]annotation.Annotation, len(seqs))
	for i, s := range seqs {
		out[i] = x.items[s]
	}
	return out
}
