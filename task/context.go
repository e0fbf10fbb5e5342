package task

import (
	"context"
	"fmt"

	"github.com/csams/jack/codec"
)

// Context is handed to a delegate for one argument bundle.
type Context struct {
	ctx    context.Context
	name   string
	codec  codec.Codec
	bundle Bundle
}

// NewContext builds the context a delegate runs with.
func NewContext(ctx context.Context, name string, c codec.Codec, b Bundle) *Context {
	return &Context{ctx: ctx, name: name, codec: c, bundle: b}
}

// Ctx returns the context of the execution.
func (c *Context) Ctx() context.Context { return c.ctx }

// Name returns the task name being executed.
func (c *Context) Name() string { return c.name }

// NArg returns the number of positional arguments.
func (c *Context) NArg() int { return len(c.bundle.Args) }

// Bind decodes positional argument i into v.
func (c *Context) Bind(i int, v any) error {
	if i < 0 || i >= len(c.bundle.Args) {
		return fmt.Errorf("%w: %s wants argument %d, got %d", ErrMissingArg, c.name, i, len(c.bundle.Args))
	}
	if err := c.codec.Unmarshal(c.bundle.Args[i], v); err != nil {
		return fmt.Errorf("bind argument %d: %w", i, err)
	}
	return nil
}

// Kwarg decodes the keyword argument name into v and reports whether it was
// present.
func (c *Context) Kwarg(name string, v any) (bool, error) {
	raw, ok := c.bundle.Kwargs[name]
	if !ok {
		return false, nil
	}
	if err := c.codec.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("bind keyword %q: %w", name, err)
	}
	return true, nil
}
