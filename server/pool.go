package server

import (
	"context"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/task"
	"golang.org/x/sync/errgroup"
)

// Pool runs workers side by side. A worker that gives up ends alone.
type Pool struct {
	workers []*Worker
}

// NewPool builds n workers sharing the same settings. Each gets its own
// name unless WithName is given.
func NewPool(n int, dial broker.DialFunc, host string, port int, registry *task.Registry, options ...Option) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{}
	for i := 0; i < n; i++ {
		p.workers = append(p.workers, NewWorker(dial, host, port, registry, options...))
	}
	return p
}

// PoolOf groups existing workers.
func PoolOf(workers ...*Worker) *Pool {
	return &Pool{workers: workers}
}

func (p *Pool) Workers() []*Worker { return p.workers }

// Run returns once every worker has ended, with the first fatal error.
func (p *Pool) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, w := range p.workers {
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}
