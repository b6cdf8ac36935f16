// Package annotation defines the contracts between a document and the items
// annotated onto it, plus the span group annotation used for tokens,
// sentences and layout regions.
package annotation

import (
	"github.com/google/uuid"

	"github.com/kailas-cloud/annodoc/internal/domain/span"
	"github.com/kailas-cloud/annodoc/internal/domain/symbols"
)

// Host is the view of a document that an annotation binds against.
type Host interface {
	ID() uuid.UUID
	Symbols() *symbols.Stream
	Indexer(field string) (Indexer, bool)
}

// Annotation is a single item attached to a document field.
type Annotation interface {
	// LinkToDocument resolves the annotation against the host's symbols,
	// records the host as owner and inserts it into the field's indexer.
	LinkToDocument(host Host, field string) error
	// Serialize returns a JSON-compatible value.
	Serialize() (any, error)
	// DocumentRef returns the identity of the owning document, or uuid.Nil
	// when unbound.
	DocumentRef() uuid.UUID
}

// Unlinker is implemented by annotations that can drop their binding when
// the document rolls back a failed field.
type Unlinker interface {
	Unlink()
}

// Spanned is anything positioned by spans. Indexer queries are Spanned.
type Spanned interface {
	Spans() []span.Span
}

// Indexer answers positional queries over the annotations of one field.
type Indexer interface {
	Insert(a Annotation) error
	Index(query Spanned) []Annotation
}
