// Package jack registers ordinary functions as tasks and runs them on
// remote workers through a broker.
//
//	eng := jack.New(jack.WithDialer(broker.RedisDialer()))
//	add, _ := eng.Define("add", addFunc)
//	eng.Connect(ctx, jack.DefaultHost, jack.DefaultPort)
//	h, _ := add.ApplyAsync(ctx, 1, 2)
//	res, err := h.Get(ctx)
//
// Workers are started with the server package against the same registry.
package jack

import (
	"context"
	"fmt"
	"time"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/codec"
	"github.com/csams/jack/manager"
	"github.com/csams/jack/task"
	"go.uber.org/zap"
)

// Engine binds a delegate registry, the managers of the broker addresses
// in use, a codec and a dialer.
type Engine struct {
	registry      *task.Registry
	directory     *manager.Directory
	codec         codec.Codec
	dial          broker.DialFunc
	logger        *zap.Logger
	host          string
	port          int
	managerOpts   []manager.Option
	pollInterval  time.Duration
	resultTimeout time.Duration
}

func New(opts ...Option) *Engine {
	e := &Engine{
		registry:     task.NewRegistry(),
		codec:        codec.JSON(),
		dial:         broker.RedisDialer(),
		logger:       zap.NewNop(),
		host:         DefaultHost,
		port:         DefaultPort,
		pollInterval: manager.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	base := append([]manager.Option{
		manager.WithCodec(e.codec),
		manager.WithLogger(e.logger),
	}, e.managerOpts...)
	e.directory = manager.NewDirectory(e.dial, base...)
	return e
}

// Define registers fn under name and returns the task dispatching it.
func (e *Engine) Define(name string, fn task.Func, opts ...TaskOption) (*Task, error) {
	if err := e.registry.Register(name, fn); err != nil {
		return nil, fmt.Errorf("define %q: %w", name, err)
	}
	t := &Task{
		engine: e,
		name:   name,
		fn:     fn,
		host:   e.host,
		port:   e.port,
		queue:  broker.DefaultTube,
		expect: true,
		ttr:    broker.DefaultTTR,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Connect starts the manager for host:port.
func (e *Engine) Connect(ctx context.Context, host string, port int, opts ...manager.Option) (*manager.HostManager, error) {
	return e.directory.Create(ctx, host, port, opts...)
}

func (e *Engine) Registry() *task.Registry     { return e.registry }
func (e *Engine) Managers() *manager.Directory { return e.directory }
func (e *Engine) Codec() codec.Codec           { return e.codec }
func (e *Engine) Dialer() broker.DialFunc      { return e.dial }
func (e *Engine) Logger() *zap.Logger          { return e.logger }

// Close closes every manager.
func (e *Engine) Close() error {
	return e.directory.Close()
}
