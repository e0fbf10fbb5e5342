package manager

import (
	"context"
	"errors"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/internal/fifo"
	"github.com/csams/jack/task"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// proxy moves envelopes from the manager's outbound queue to the broker
// and replies back to the inbound queue. It owns conn.
type proxy struct {
	id     string
	m      *HostManager
	conn   broker.Conn
	logger *zap.Logger
}

func newProxy(m *HostManager, conn broker.Conn) *proxy {
	id := uuid.NewString()
	return &proxy{
		id:     id,
		m:      m,
		conn:   conn,
		logger: m.logger.With(zap.String("proxy", id)),
	}
}

func (p *proxy) run(ctx context.Context) {
	defer p.conn.Close()
	p.logger.Debug("proxy started")
	for !p.m.stopped.Load() {
		dc, err := p.m.outbound.Get(ctx, p.m.opts.pollInterval)
		if errors.Is(err, fifo.ErrTimeout) {
			continue
		}
		if err != nil {
			break
		}
		p.forward(ctx, dc)
	}
	p.logger.Debug("proxy stopped")
}

func (p *proxy) forward(ctx context.Context, dc *task.DelayedCall) {
	Stamp(dc, p.m.host, p.m.port)
	res, err := RoundTrip(ctx, p.conn, p.m.opts.codec, dc, Wait{
		Poll:    p.m.opts.pollInterval,
		Timeout: p.m.opts.resultTimeout,
		Stop:    p.m.stopped.Load,
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrClosed) {
			return
		}
		p.logger.Error("dispatch failed", zap.Stringer("call", dc), zap.Error(err))
		if broker.Retryable(err) {
			if rerr := p.conn.Reconnect(ctx); rerr != nil {
				p.logger.Warn("reconnect failed", zap.Error(rerr))
			}
		}
		if !dc.ExpectResult {
			return
		}
		res = &task.ServerResult{
			ID:        dc.ID,
			SeqID:     dc.SeqID,
			Exception: &task.Error{Type: task.TypeDispatch, Message: err.Error()},
		}
	}
	if res == nil {
		return
	}
	if err := p.m.inbound.Put(res); err != nil {
		p.logger.Debug("result after close dropped", zap.Stringer("call", dc))
	}
}
