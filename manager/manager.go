// Package manager dispatches envelopes to a broker from a pool of proxy
// goroutines and correlates the replies back to the caller.
//
// A HostManager serves one broker address. Calls are enqueued without
// blocking; the caller later collects the result by id with Get.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/internal/fifo"
	"github.com/csams/jack/task"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type HostManager struct {
	host   string
	port   int
	opts   settings
	logger *zap.Logger

	outbound *fifo.Queue[*task.DelayedCall]
	inbound  *fifo.Queue[*task.ServerResult]

	boardMu sync.Mutex
	board   map[uint64]receiver

	// getMu serializes Get; receivers are only touched while holding it.
	getMu sync.Mutex

	stopped   atomic.Bool
	cancel    context.CancelFunc
	proxies   errgroup.Group
	closeOnce sync.Once
}

// New dials one connection per pool slot and starts the proxies. ctx only
// bounds the dialing.
func New(ctx context.Context, host string, port int, dial broker.DialFunc, options ...Option) (*HostManager, error) {
	opts := newSettings(options)
	conns := make([]broker.Conn, 0, opts.poolSize)
	for i := 0; i < opts.poolSize; i++ {
		c, err := dial(ctx, host, port)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return nil, fmt.Errorf("dial proxy %d for %s:%d: %w", i, host, port, err)
		}
		conns = append(conns, c)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m := &HostManager{
		host:     host,
		port:     port,
		opts:     opts,
		logger:   opts.logger.With(zap.String("host", host), zap.Int("port", port)),
		outbound: fifo.New[*task.DelayedCall](),
		inbound:  fifo.New[*task.ServerResult](),
		board:    make(map[uint64]receiver),
		cancel:   cancel,
	}
	for _, c := range conns {
		p := newProxy(m, c)
		m.proxies.Go(func() error {
			p.run(runCtx)
			return nil
		})
	}
	m.logger.Info("manager started", zap.Int("proxies", opts.poolSize))
	return m, nil
}

func (m *HostManager) Host() string  { return m.host }
func (m *HostManager) Port() int     { return m.port }
func (m *HostManager) PoolSize() int { return m.opts.poolSize }

// Pending returns the number of requests whose result has not been
// retrieved.
func (m *HostManager) Pending() int {
	m.boardMu.Lock()
	defer m.boardMu.Unlock()
	return len(m.board)
}

// ApplyAsync enqueues dc under a fresh id.
func (m *HostManager) ApplyAsync(dc *task.DelayedCall) (*Handle, error) {
	if m.stopped.Load() {
		return nil, ErrClosed
	}
	id := NextID()
	dc.ID, dc.SeqID = id, 0
	if dc.ExpectResult {
		m.post(id, &simpleReceiver{})
	}
	if err := m.outbound.Put(dc); err != nil {
		m.retire(id)
		return nil, ErrClosed
	}
	return &Handle{m: m, id: id, expect: dc.ExpectResult}, nil
}

// Map enqueues chunks under one shared id and seq ids 1..N. The result
// holds the values of every chunk in submission order.
func (m *HostManager) Map(chunks []*task.DelayedCall) (*Handle, error) {
	if m.stopped.Load() {
		return nil, ErrClosed
	}
	id := NextID()
	expect := len(chunks) == 0 || chunks[0].ExpectResult
	if expect {
		m.post(id, newMapReceiver(len(chunks)))
	}
	for i, dc := range chunks {
		dc.ID, dc.SeqID = id, i+1
		dc.ExpectResult = expect
		if err := m.outbound.Put(dc); err != nil {
			m.retire(id)
			return nil, ErrClosed
		}
	}
	return &Handle{m: m, id: id, expect: expect}, nil
}

// Get waits for the result of request id and retires it. The second Get
// of an id fails with ErrUnknownID. A failed request returns its
// *task.Error.
func (m *HostManager) Get(ctx context.Context, id uint64) (*Result, error) {
	m.getMu.Lock()
	defer m.getMu.Unlock()

	r, ok := m.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	for !r.fulfilled() {
		res, err := m.inbound.Get(ctx, 0)
		if err != nil {
			if errors.Is(err, fifo.ErrClosed) {
				return nil, ErrClosed
			}
			return nil, err
		}
		m.route(res)
	}
	m.retire(id)
	values, err := r.assemble()
	if err != nil {
		return nil, err
	}
	return NewResult(m.opts.codec, values), nil
}

func (m *HostManager) route(res *task.ServerResult) {
	r, ok := m.lookup(res.ID)
	if !ok {
		m.logger.Warn("result for retired request dropped", zap.Uint64("id", res.ID), zap.Int("seq", res.SeqID))
		return
	}
	if !r.add(res) {
		m.logger.Warn("duplicate result dropped", zap.Uint64("id", res.ID), zap.Int("seq", res.SeqID))
	}
}

func (m *HostManager) post(id uint64, r receiver) {
	m.boardMu.Lock()
	m.board[id] = r
	m.boardMu.Unlock()
}

func (m *HostManager) lookup(id uint64) (receiver, bool) {
	m.boardMu.Lock()
	defer m.boardMu.Unlock()
	r, ok := m.board[id]
	return r, ok
}

func (m *HostManager) retire(id uint64) {
	m.boardMu.Lock()
	delete(m.board, id)
	m.boardMu.Unlock()
}

// Close stops the proxies and releases their connections. Requests still
// in flight are abandoned; a blocked Get returns ErrClosed.
func (m *HostManager) Close() error {
	m.closeOnce.Do(func() {
		m.stopped.Store(true)
		m.cancel()
		left := m.outbound.Close()
		_ = m.proxies.Wait()
		m.inbound.Close()
		if len(left) > 0 {
			m.logger.Warn("undispatched calls discarded", zap.Int("count", len(left)))
		}
		m.logger.Info("manager stopped")
	})
	return nil
}
