package task

import (
	"context"
	"fmt"

	"github.com/csams/jack/codec"
)

// Invoke executes dc against the registry. It calls the delegate once per
// argument bundle; the first failure aborts the envelope and its partial
// values are dropped. Invoke never returns nil.
func (r *Registry) Invoke(ctx context.Context, c codec.Codec, dc *DelayedCall) *ServerResult {
	fn, ok := r.Get(dc.DelegateKey)
	if !ok {
		return &ServerResult{
			ID:        dc.ID,
			SeqID:     dc.SeqID,
			Exception: &Error{Type: TypeDelegateNotFound, Message: dc.DelegateKey},
		}
	}
	if len(dc.Args) == 0 {
		return Failed(dc, ErrNoArguments)
	}

	values := make([][]byte, 0, len(dc.Args))
	for _, b := range dc.Args {
		v, err := Call(ctx, fn, dc.Name, c, b)
		if err != nil {
			return Failed(dc, err)
		}
		raw, err := c.Marshal(v)
		if err != nil {
			return &ServerResult{
				ID:        dc.ID,
				SeqID:     dc.SeqID,
				Exception: &Error{Type: TypeEncode, Message: err.Error()},
			}
		}
		values = append(values, raw)
	}
	return &ServerResult{ID: dc.ID, SeqID: dc.SeqID, Value: values}
}

// Call runs fn for one bundle, turning a panic into an error.
func Call(ctx context.Context, fn Func, name string, c codec.Codec, b Bundle) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v = nil
			err = &Error{Type: TypePanic, Message: fmt.Sprint(p)}
		}
	}()
	return fn(NewContext(ctx, name, c, b))
}
