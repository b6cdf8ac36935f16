package annotation

import (
	"encoding/json"
	"sync"
)

// DecodeFunc reconstructs an unbound annotation from its serialized form.
type DecodeFunc func(raw json.RawMessage) (Annotation, error)

// Registry maps field names to decoders. Fields without an entry use the
// fallback, which is DecodeSpanGroup unless replaced. A nil *Registry behaves
// like an empty one.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]DecodeFunc
	fallback DecodeFunc
}

// NewRegistry creates a registry with the span group fallback.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]DecodeFunc), fallback: DecodeSpanGroup}
}

// Register sets the decoder for a field name.
func (r *Registry) Register(field string, fn DecodeFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[field] = fn
	return r
}

// WithFallback replaces the decoder used for unregistered fields.
func (r *Registry) WithFallback(fn DecodeFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = fn
	return r
}

// Decoder returns the decoder for a field name.
func (r *Registry) Decoder(field string) DecodeFunc {
	if r == nil {
		return DecodeSpanGroup
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.decoders[field]; ok {
		return fn
	}
	if r.fallback != nil {
		return r.fallback
	}
	return DecodeSpanGroup
}
