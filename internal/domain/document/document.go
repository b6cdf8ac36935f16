package document

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	"github.com/kailas-cloud/annodoc/internal/domain/indexer"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/domain/symbols"
)

// Reserved field names present on every document.
const (
	FieldSymbols = "symbols"
	FieldImages  = "images"
)

// reservedPrefix marks names kept for internal use.
const reservedPrefix = "_"

// memberNames lists the fixed members of Document. Field names may not
// shadow them, in either snake or flat case.
var memberNames = map[string]bool{
	"id": true, "symbols": true, "images": true, "fields": true,
	"annotate": true, "add": true, "find": true,
	"to_json": true, "tojson": true, "from_json": true, "fromjson": true,
	"save": true, "load": true,
	"get_field": true, "getfield": true, "set_field": true, "setfield": true,
	"has_field": true, "hasfield": true,
	"register_field": true, "registerfield": true,
	"indexer": true, "page_count": true, "pagecount": true,
}

// IndexerFactory builds the indexer of a newly registered field.
type IndexerFactory func(pageCount int) annotation.Indexer

// Option configures a Document.
type Option func(*Document)

// WithIndexerFactory replaces the default span group indexer.
func WithIndexerFactory(f IndexerFactory) Option {
	return func(d *Document) {
		if f != nil {
			d.newIndexer = f
		}
	}
}

// WithID sets the document identity instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(d *Document) {
		if id != uuid.Nil {
			d.id = id
		}
	}
}

// Document is a symbol stream, its optional page images, and the named
// annotation fields registered onto it. A Document is not safe for
// concurrent mutation.
type Document struct {
	id         uuid.UUID
	symbols    *symbols.Stream
	images     []*pageimage.Image
	fields     []string
	values     map[string][]annotation.Annotation
	indexers   map[string]annotation.Indexer
	newIndexer IndexerFactory
}

var _ annotation.Host = (*Document)(nil)

// FieldSet is a named, ordered sequence of annotations.
type FieldSet struct {
	Name        string
	Annotations []annotation.Annotation
}

// Set builds a FieldSet.
func Set(name string, anns ...annotation.Annotation) FieldSet {
	return FieldSet{Name: name, Annotations: anns}
}

// New creates a document over the given symbols. images may be nil.
func New(sym *symbols.Stream, images []*pageimage.Image, opts ...Option) *Document {
	if sym == nil {
		sym = symbols.New()
	}
	d := &Document{
		id:         uuid.New(),
		symbols:    sym,
		images:     images,
		fields:     []string{FieldSymbols, FieldImages},
		values:     make(map[string][]annotation.Annotation),
		indexers:   make(map[string]annotation.Indexer),
		newIndexer: indexer.New,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ID returns the identity token annotations refer back to.
func (d *Document) ID() uuid.UUID { return d.id }

// Symbols returns the symbol stream.
func (d *Document) Symbols() *symbols.Stream { return d.symbols }

// PageCount returns the number of pages of the symbol stream.
func (d *Document) PageCount() int { return d.symbols.PageCount() }

// Images returns the page images, or nil when the document has none.
func (d *Document) Images() []*pageimage.Image { return d.images }

// SetImages replaces the page images.
func (d *Document) SetImages(images []*pageimage.Image) { d.images = images }

// Fields returns the field names, reserved ones first, then registration order.
func (d *Document) Fields() []string {
	out := make([]string, len(d.fields))
	copy(out, d.fields)
	return out
}

// HasField reports whether name is a registered or reserved field.
func (d *Document) HasField(name string) bool {
	for _, f := range d.fields {
		if f == name {
			return true
		}
	}
	return false
}

// Indexer returns the indexer of a registered field.
func (d *Document) Indexer(field string) (annotation.Indexer, bool) {
	idx, ok := d.indexers[field]
	return idx, ok
}

// RegisterField adds a field name and creates its indexer.
// It does not give the field a value.
func (d *Document) RegisterField(name string) error {
	if err := d.validateFieldName(name); err != nil {
		return err
	}
	d.fields = append(d.fields, name)
	d.indexers[name] = d.newIndexer(d.symbols.PageCount())
	return nil
}

func (d *Document) validateFieldName(name string) error {
	if name == "" {
		return domain.NewFieldNameError(name, "must not be empty")
	}
	if strings.HasPrefix(name, reservedPrefix) {
		return domain.NewFieldNameError(name, "must not start with "+reservedPrefix)
	}
	if name == "fields" {
		return domain.NewFieldNameError(name, "is reserved")
	}
	if d.HasField(name) {
		return domain.NewFieldNameError(name, "already exists")
	}
	if memberNames[strings.ToLower(name)] {
		return domain.NewFieldNameError(name, "conflicts with a document member")
	}
	return nil
}

// Annotate registers each field, binds its annotations to the document in
// order and stores them. Sets are processed in order; sets completed before
// a failure stay committed. The failing set is rolled back: its field is
// unregistered and annotations it had bound are unlinked.
func (d *Document) Annotate(sets ...FieldSet) error {
	for _, set := range sets {
		if err := d.annotate(set); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) annotate(set FieldSet) error {
	if err := d.RegisterField(set.Name); err != nil {
		return fmt.Errorf("annotate %q: %w", set.Name, err)
	}
	var linked []annotation.Annotation
	for i, a := range set.Annotations {
		wasBound := a.DocumentRef() == d.id
		if err := a.LinkToDocument(d, set.Name); err != nil {
			d.rollbackField(set.Name, linked)
			return fmt.Errorf("annotate %q: annotation %d: %w", set.Name, i, err)
		}
		if !wasBound {
			linked = append(linked, a)
		}
	}
	d.values[set.Name] = set.Annotations
	return nil
}

// rollbackField undoes RegisterField for name and unlinks anns.
// The field's indexer goes with it, so nothing bound stays queryable.
func (d *Document) rollbackField(name string, anns []annotation.Annotation) {
	for _, a := range anns {
		if u, ok := a.(annotation.Unlinker); ok {
			u.Unlink()
		}
	}
	delete(d.indexers, name)
	delete(d.values, name)
	for i, f := range d.fields {
		if f == name {
			d.fields = append(d.fields[:i], d.fields[i+1:]...)
			break
		}
	}
}

// Add stores annotations that are already bound to this document. Each
// field must be registered. The field's indexer is assumed to already hold
// the annotations; Add does not touch it.
func (d *Document) Add(sets ...FieldSet) error {
	for _, set := range sets {
		if err := d.SetField(set.Name, set.Annotations); err != nil {
			return fmt.Errorf("add: %w", err)
		}
	}
	return nil
}

// SetField stores already-bound annotations under a registered field.
func (d *Document) SetField(name string, anns []annotation.Annotation) error {
	if !d.HasField(name) {
		return fmt.Errorf("field %q is not registered: %w", name, domain.ErrPrecondition)
	}
	if _, ok := d.indexers[name]; !ok {
		return fmt.Errorf("field %q has no indexer: %w", name, domain.ErrPrecondition)
	}
	for i, a := range anns {
		if a.DocumentRef() != d.id {
			return fmt.Errorf("field %q annotation %d: %w", name, i, domain.ErrConsistency)
		}
	}
	d.values[name] = anns
	return nil
}

// GetField returns the annotations of a registered field in stored order.
// A registered field without a value returns an empty sequence.
func (d *Document) GetField(name string) ([]annotation.Annotation, error) {
	if _, ok := d.indexers[name]; !ok {
		return nil, fmt.Errorf("field %q: %w", name, domain.ErrUnknownField)
	}
	return d.values[name], nil
}

// Find runs query against the indexer of field.
func (d *Document) Find(query annotation.Spanned, field string) ([]annotation.Annotation, error) {
	idx, ok := d.indexers[field]
	if !ok {
		return nil, fmt.Errorf("find in %q: %w", field, domain.ErrUnknownField)
	}
	return idx.Index(query), nil
}
