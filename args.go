package jack

import (
	"maps"

	"github.com/csams/jack/codec"
	"github.com/csams/jack/task"
)

// Bundle holds the arguments of one delegate call before encoding.
type Bundle struct {
	args   []any
	kwargs map[string]any
}

// Args builds a bundle of positional arguments.
func Args(v ...any) Bundle {
	return Bundle{args: v}
}

// With returns a copy of b with the keyword argument name set to v.
func (b Bundle) With(name string, v any) Bundle {
	kw := make(map[string]any, len(b.kwargs)+1)
	maps.Copy(kw, b.kwargs)
	kw[name] = v
	return Bundle{args: b.args, kwargs: kw}
}

func (b Bundle) encode(c codec.Codec) (task.Bundle, error) {
	return task.NewBundle(c, b.args, b.kwargs)
}

// bundleOf treats a single Bundle argument as the whole call.
func bundleOf(args []any) Bundle {
	if len(args) == 1 {
		if b, ok := args[0].(Bundle); ok {
			return b
		}
	}
	return Args(args...)
}
