package annotation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/geometry"
	"github.com/kailas-cloud/annodoc/internal/domain/span"
)

// SpanGroup is an annotation covering one or more spans, e.g. a token, a
// sentence, or a layout block made of several regions.
type SpanGroup struct {
	ID       *int
	Type     string
	Text     string
	Box      *geometry.Box
	Metadata map[string]any

	spans []span.Span
	doc   uuid.UUID
	// filledText is set when Text came from the bound document's symbols.
	filledText bool
}

var (
	_ Annotation = (*SpanGroup)(nil)
	_ Unlinker   = (*SpanGroup)(nil)
)

// NewSpanGroup creates an unbound span group.
func NewSpanGroup(spans ...span.Span) *SpanGroup {
	cp := make([]span.Span, len(spans))
	for i, s := range spans {
		cp[i] = s.Clone()
	}
	return &SpanGroup{spans: cp}
}

// Spans returns the spans in their stored order.
func (g *SpanGroup) Spans() []span.Span { return g.spans }

// DocumentRef returns the owning document identity.
func (g *SpanGroup) DocumentRef() uuid.UUID { return g.doc }

// IsBound reports whether the group has been linked to a document.
func (g *SpanGroup) IsBound() bool { return g.doc != uuid.Nil }

// LinkToDocument resolves every span to its page, fills Text from the
// symbols when empty, and inserts the group into the field's indexer.
// Nothing is modified when a span fails to resolve.
func (g *SpanGroup) LinkToDocument(host Host, field string) error {
	if g.IsBound() && g.doc != host.ID() {
		return fmt.Errorf("span group already bound to document %s: %w", g.doc, domain.ErrConsistency)
	}
	idx, ok := host.Indexer(field)
	if !ok {
		return fmt.Errorf("field %q has no indexer: %w", field, domain.ErrPrecondition)
	}

	stream := host.Symbols()
	resolved := make([]span.Span, len(g.spans))
	var parts []string
	for i, s := range g.spans {
		r, err := stream.Resolve(s)
		if err != nil {
			return fmt.Errorf("span %d: %w: %w", i, domain.ErrInvalidSpan, err)
		}
		resolved[i] = r
		if !r.IsEmpty() {
			text, err := stream.Slice(r.Start, r.End)
			if err != nil {
				return fmt.Errorf("span %d: %w: %w", i, domain.ErrInvalidSpan, err)
			}
			parts = append(parts, text)
		}
	}

	g.spans = resolved
	if g.Text == "" {
		g.Text = strings.Join(parts, " ")
		g.filledText = true
	}
	g.doc = host.ID()
	if err := idx.Insert(g); err != nil {
		return fmt.Errorf("index span group: %w", err)
	}
	return nil
}

// Unlink clears the document binding and any text filled in from it.
// Resolved span pages are kept; they are valid for any document with the
// same symbols and are re-derived on the next link.
func (g *SpanGroup) Unlink() {
	g.doc = uuid.Nil
	if g.filledText {
		g.Text = ""
		g.filledText = false
	}
}

type spanGroupJSON struct {
	ID       *int           `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Spans    []span.Span    `json:"spans"`
	Box      *geometry.Box  `json:"box,omitempty"`
	Text     string         `json:"text,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Serialize returns the JSON form of the group.
func (g *SpanGroup) Serialize() (any, error) {
	spans := g.spans
	if spans == nil {
		spans = []span.Span{}
	}
	return spanGroupJSON{
		ID:       g.ID,
		Type:     g.Type,
		Spans:    spans,
		Box:      g.Box,
		Text:     g.Text,
		Metadata: g.Metadata,
	}, nil
}

// MarshalJSON encodes the serialized form.
func (g *SpanGroup) MarshalJSON() ([]byte, error) {
	v, err := g.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// DecodeSpanGroup reconstructs an unbound span group from its serialized form.
func DecodeSpanGroup(raw json.RawMessage) (Annotation, error) {
	var v spanGroupJSON
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode span group: %w", err)
	}
	g := NewSpanGroup(v.Spans...)
	g.ID = v.ID
	g.Type = v.Type
	g.Box = v.Box
	g.Text = v.Text
	g.Metadata = v.Metadata
	return g, nil
}
