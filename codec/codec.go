// Package codec holds the encodings used for envelopes, results and task
// arguments. Both sides of a broker must agree on the codec.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknown is returned by Lookup for a name no codec answers to.
var ErrUnknown = errors.New("unknown codec")

// Codec marshals values to bytes and back.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Registry maps codec names and content types to codecs.
type Registry struct {
	byName map[string]Codec
}

// NewRegistry returns a registry preloaded with JSON and CBOR.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Codec)}
	r.Register(JSON())
	if c, err := CBOR(); err == nil {
		r.Register(c)
	}
	return r
}

// Register adds c under its name and its content type.
func (r *Registry) Register(c Codec) {
	r.byName[strings.ToLower(c.Name())] = c
	r.byName[strings.ToLower(c.ContentType())] = c
}

// Get returns the codec for a name or content type, or nil.
func (r *Registry) Get(name string) Codec {
	return r.byName[strings.ToLower(strings.TrimSpace(name))]
}

// Names lists the registered codec names.
func (r *Registry) Names() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range r.byName {
		if _, ok := seen[c.Name()]; ok {
			continue
		}
		seen[c.Name()] = struct{}{}
		out = append(out, c.Name())
	}
	sort.Strings(out)
	return out
}

var defaultRegistry = NewRegistry()

// Lookup resolves "json", "cbor" or a content type against the built-in
// codecs. An empty name selects JSON.
func Lookup(name string) (Codec, error) {
	if strings.TrimSpace(name) == "" {
		return JSON(), nil
	}
	if c := defaultRegistry.Get(name); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
}
