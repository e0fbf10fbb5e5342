package jack

import (
	"context"
	"fmt"
	"time"

	"github.com/csams/jack/manager"
	"github.com/csams/jack/task"
)

// Task dispatches one registered delegate. Arguments are either plain
// positional values or a single Bundle built with Args.
type Task struct {
	engine    *Engine
	name      string
	fn        task.Func
	host      string
	port      int
	queue     string
	expect    bool
	ttr       time.Duration
	chunkSize int
}

func (t *Task) Name() string { return t.name }
func (t *Task) Host() string { return t.host }
func (t *Task) Port() int    { return t.port }

// Call runs the delegate in process.
func (t *Task) Call(ctx context.Context, args ...any) (any, error) {
	b, err := bundleOf(args).encode(t.engine.codec)
	if err != nil {
		return nil, err
	}
	return task.Call(ctx, t.fn, t.name, t.engine.codec, b)
}

// Apply runs the delegate remotely and waits for the result on a
// connection of its own. It returns nil, nil for fire-and-forget tasks.
func (t *Task) Apply(ctx context.Context, args ...any) (*manager.Result, error) {
	dc, err := t.envelope(bundleOf(args))
	if err != nil {
		return nil, err
	}
	dc.ID = manager.NextID()
	manager.Stamp(dc, t.host, t.port)

	conn, err := t.engine.dial(ctx, t.host, t.port)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	res, err := manager.RoundTrip(ctx, conn, t.engine.codec, dc, manager.Wait{
		Poll:    t.engine.pollInterval,
		Timeout: t.engine.resultTimeout,
	})
	if err != nil || res == nil {
		return nil, err
	}
	return manager.Assemble(t.engine.codec, res)
}

// ApplyAsync dispatches through the manager of the task's broker address.
func (t *Task) ApplyAsync(ctx context.Context, args ...any) (*manager.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := t.manager()
	if err != nil {
		return nil, err
	}
	dc, err := t.envelope(bundleOf(args))
	if err != nil {
		return nil, err
	}
	return m.ApplyAsync(dc)
}

// Map runs the delegate once per bundle across the workers, in chunks, and
// returns a handle whose result lists the values in bundle order. Without
// WithChunkSize the bundles are spread evenly over the manager's proxies.
func (t *Task) Map(ctx context.Context, bundles []Bundle, opts ...TaskOption) (*manager.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := t.manager()
	if err != nil {
		return nil, err
	}
	tt := *t
	for _, opt := range opts {
		opt(&tt)
	}
	size := tt.chunkSize
	if size <= 0 {
		size = (len(bundles) + m.PoolSize() - 1) / m.PoolSize()
	}
	size = max(size, 1)

	var chunks []*task.DelayedCall
	for i := 0; i < len(bundles); i += size {
		dc, err := tt.envelope(bundles[i:min(i+size, len(bundles))]...)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", len(chunks)+1, err)
		}
		chunks = append(chunks, dc)
	}
	return m.Map(chunks)
}

func (t *Task) manager() (*manager.HostManager, error) {
	m, ok := t.engine.directory.Get(t.host, t.port)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoManager, manager.Addr{Host: t.host, Port: t.port})
	}
	return m, nil
}

func (t *Task) envelope(bundles ...Bundle) (*task.DelayedCall, error) {
	dc := &task.DelayedCall{
		Name:         t.name,
		DelegateKey:  t.name,
		Args:         make([]task.Bundle, 0, len(bundles)),
		ExpectResult: t.expect,
		Queue:        t.queue,
		TTR:          t.ttr,
	}
	for _, b := range bundles {
		raw, err := b.encode(t.engine.codec)
		if err != nil {
			return nil, err
		}
		dc.Args = append(dc.Args, raw)
	}
	return dc, nil
}
