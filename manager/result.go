package manager

import (
	"context"
	"fmt"

	"github.com/csams/jack/codec"
	"github.com/csams/jack/task"
)

// Result is the assembled reply to a request: one encoded value for a
// simple call, all values in input order for a map.
type Result struct {
	codec  codec.Codec
	values [][]byte
}

func NewResult(c codec.Codec, values [][]byte) *Result {
	return &Result{codec: c, values: values}
}

// Assemble turns a single ServerResult into a Result, returning the
// carried exception as the error.
func Assemble(c codec.Codec, r *task.ServerResult) (*Result, error) {
	s := &simpleReceiver{result: r}
	values, err := s.assemble()
	if err != nil {
		return nil, err
	}
	return NewResult(c, values), nil
}

func (r *Result) Len() int { return len(r.values) }

// Raw returns the encoded values.
func (r *Result) Raw() [][]byte { return r.values }

// Decode decodes the first value into v.
func (r *Result) Decode(v any) error { return r.DecodeAt(0, v) }

func (r *Result) DecodeAt(i int, v any) error {
	if i < 0 || i >= len(r.values) {
		return fmt.Errorf("%w: %d of %d", ErrNoValue, i, len(r.values))
	}
	return r.codec.Unmarshal(r.values[i], v)
}

// Values decodes every value of r as a T.
func Values[T any](r *Result) ([]T, error) {
	out := make([]T, len(r.values))
	for i := range r.values {
		if err := r.DecodeAt(i, &out[i]); err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
	}
	return out, nil
}

// Handle refers to a dispatched request.
type Handle struct {
	m      *HostManager
	id     uint64
	expect bool
}

func (h *Handle) ID() uint64 { return h.id }

// Get blocks until the request's result is in. It can be called once.
func (h *Handle) Get(ctx context.Context) (*Result, error) {
	if !h.expect {
		return nil, ErrNoResult
	}
	return h.m.Get(ctx, h.id)
}
