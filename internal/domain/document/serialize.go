package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/domain/symbols"
)

// JSONOption configures ToJSON and EncodeJSON.
type JSONOption func(*jsonConfig)

type jsonConfig struct {
	fields     []string
	withImages bool
}

// Fields restricts the output to the named fields.
func Fields(names ...string) JSONOption {
	return func(c *jsonConfig) {
		c.fields = names
	}
}

// WithImages includes the images field as base64 strings. Without it the
// images field is dropped even when named in Fields.
func WithImages() JSONOption {
	return func(c *jsonConfig) {
		c.withImages = true
	}
}

// ToJSON returns a mapping from field name to its serialized value.
func (d *Document) ToJSON(opts ...JSONOption) (map[string]any, error) {
	order, values, err := d.serialize(opts...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(order))
	for _, name := range order {
		out[name] = values[name]
	}
	return out, nil
}

// EncodeJSON returns the JSON encoding of ToJSON with keys in field order.
func (d *Document) EncodeJSON(opts ...JSONOption) ([]byte, error) {
	order, values, err := d.serialize(opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		v, err := json.Marshal(values[name])
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", name, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes all fields except images.
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.EncodeJSON()
}

func (d *Document) serialize(opts ...JSONOption) ([]string, map[string]any, error) {
	cfg := jsonConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	requested := cfg.fields
	if requested == nil {
		requested = d.fields
	}

	order := make([]string, 0, len(requested))
	values := make(map[string]any, len(requested))
	for _, name := range requested {
		if name == FieldImages && !cfg.withImages {
			continue
		}
		if _, dup := values[name]; dup {
			continue
		}
		v, err := d.serializeField(name)
		if err != nil {
			return nil, nil, err
		}
		order = append(order, name)
		values[name] = v
	}
	return order, values, nil
}

func (d *Document) serializeField(name string) (any, error) {
	switch name {
	case FieldSymbols:
		return d.symbols, nil
	case FieldImages:
		if d.images == nil {
			return []*pageimage.Image{}, nil
		}
		return d.images, nil
	}
	anns, err := d.GetField(name)
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	out := make([]any, len(anns))
	for i, a := range anns {
		v, err := a.Serialize()
		if err != nil {
			return nil, fmt.Errorf("serialize %q annotation %d: %w", name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// FromJSON builds a document from a field mapping as produced by ToJSON.
// The input is not modified. Annotation fields are registered in name
// order, decoded through reg, re-bound to the new document and stored
// with Add.
func FromJSON(raw map[string]json.RawMessage, reg *annotation.Registry, opts ...Option) (*Document, error) {
	order := make([]string, 0, len(raw))
	for name := range raw {
		order = append(order, name)
	}
	sort.Strings(order)
	return fromJSON(order, raw, reg, opts...)
}

// Unmarshal builds a document from JSON bytes, registering annotation fields
// in the order they appear.
func Unmarshal(data []byte, reg *annotation.Registry, opts ...Option) (*Document, error) {
	order, raw, err := decodeOrdered(data)
	if err != nil {
		return nil, err
	}
	return fromJSON(order, raw, reg, opts...)
}

func fromJSON(order []string, raw map[string]json.RawMessage, reg *annotation.Registry, opts ...Option) (*Document, error) {
	symRaw, ok := raw[FieldSymbols]
	if !ok {
		return nil, fmt.Errorf("document json has no %q entry: %w", FieldSymbols, domain.ErrNotFound)
	}
	sym := &symbols.Stream{}
	if err := json.Unmarshal(symRaw, sym); err != nil {
		return nil, fmt.Errorf("from json: %w", err)
	}

	var images []*pageimage.Image
	if imgRaw, ok := raw[FieldImages]; ok {
		if err := json.Unmarshal(imgRaw, &images); err != nil {
			return nil, fmt.Errorf("from json: decode images: %w", err)
		}
		if len(images) == 0 {
			images = nil
		}
	}

	doc := New(sym, images, opts...)
	for _, name := range order {
		if name == FieldSymbols || name == FieldImages {
			continue
		}
		anns, err := doc.rebind(name, raw[name], reg)
		if err != nil {
			return nil, fmt.Errorf("from json: %w", err)
		}
		if err := doc.Add(Set(name, anns...)); err != nil {
			return nil, fmt.Errorf("from json: %w", err)
		}
	}
	return doc, nil
}

// rebind registers a field and binds its decoded annotations, which fills
// the field's indexer without storing a value.
func (d *Document) rebind(name string, data json.RawMessage, reg *annotation.Registry) ([]annotation.Annotation, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("field %q is not a list: %w", name, err)
	}
	if err := d.RegisterField(name); err != nil {
		return nil, err
	}
	decode := reg.Decoder(name)
	anns := make([]annotation.Annotation, len(items))
	for i, item := range items {
		a, err := decode(item)
		if err != nil {
			return nil, fmt.Errorf("field %q annotation %d: %w", name, i, err)
		}
		if err := a.LinkToDocument(d, name); err != nil {
			return nil, fmt.Errorf("field %q annotation %d: %w", name, i, err)
		}
		anns[i] = a
	}
	return anns, nil
}

func decodeOrdered(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode document json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("decode document json: expected object")
	}

	var order []string
	raw := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode document json: %w", err)
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("decode document json field %q: %w", key, err)
		}
		if _, dup := raw[key]; !dup {
			order = append(order, key)
		}
		raw[key] = v
	}
	return order, raw, nil
}
