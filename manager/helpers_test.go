package manager_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/codec"
	"github.com/csams/jack/manager"
	"github.com/csams/jack/server"
	"github.com/csams/jack/task"
)

func ops(t *testing.T) *task.Registry {
	t.Helper()
	r := task.NewRegistry()
	require.NoError(t, r.Register("add", func(c *task.Context) (any, error) {
		var a, b int
		if err := c.Bind(0, &a); err != nil {
			return nil, err
		}
		if err := c.Bind(1, &b); err != nil {
			return nil, err
		}
		return a + b, nil
	}))
	require.NoError(t, r.Register("boom", func(*task.Context) (any, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, r.Register("fail", func(c *task.Context) (any, error) {
		var n int
		if err := c.Bind(0, &n); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("fail %d", n)
	}))
	// slow_add sleeps for its third argument in milliseconds.
	require.NoError(t, r.Register("slow_add", func(c *task.Context) (any, error) {
		var a, b, ms int
		for i, p := range []*int{&a, &b, &ms} {
			if err := c.Bind(i, p); err != nil {
				return nil, err
			}
		}
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-c.Ctx().Done():
			return nil, c.Ctx().Err()
		}
		return a + b, nil
	}))
	return r
}

func call(t *testing.T, name string, expect bool, bundles ...[]any) *task.DelayedCall {
	t.Helper()
	dc := &task.DelayedCall{
		Name:         name,
		DelegateKey:  name,
		ExpectResult: expect,
		Queue:        broker.DefaultTube,
	}
	for _, args := range bundles {
		b, err := task.NewBundle(codec.JSON(), args, nil)
		require.NoError(t, err)
		dc.Args = append(dc.Args, b)
	}
	return dc
}

// serve runs n workers on hub until the test ends.
func serve(t *testing.T, hub *broker.Hub, r *task.Registry, n int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	pool := server.NewPool(n, hub.Dialer(), "localhost", 6379, r,
		server.WithReserveTimeout(50*time.Millisecond),
		server.WithRetryBackoff(10*time.Millisecond),
	)
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func start(t *testing.T, hub *broker.Hub, opts ...manager.Option) *manager.HostManager {
	t.Helper()
	opts = append([]manager.Option{
		manager.WithPoolSize(4),
		manager.WithPollInterval(20 * time.Millisecond),
	}, opts...)
	m, err := manager.New(t.Context(), "localhost", 6379, hub.Dialer(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, m.Close()) })
	return m
}

func get(t *testing.T, h *manager.Handle) (*manager.Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	return h.Get(ctx)
}
