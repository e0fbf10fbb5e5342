// Package server executes envelopes taken from the broker.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/task"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrRetriesExhausted = errors.New("broker retries exhausted")

// State is the connection state of a worker.
type State int32

const (
	Connected State = iota
	Retrying
	Fatal
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Retrying:
		return "retrying"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Worker reserves envelopes from its channels, runs them through the
// registry and publishes results. It owns one broker connection.
type Worker struct {
	host     string
	port     int
	dial     broker.DialFunc
	registry *task.Registry
	opts     settings
	logger   *zap.Logger

	state   atomic.Int32
	served  atomic.Uint64
	retries atomic.Int32
}

func NewWorker(dial broker.DialFunc, host string, port int, registry *task.Registry, options ...Option) *Worker {
	opts := newSettings(options)
	if opts.name == "" {
		opts.name = uuid.NewString()
	}
	w := &Worker{
		host:     host,
		port:     port,
		dial:     dial,
		registry: registry,
		opts:     opts,
		logger:   opts.logger.With(zap.String("worker", opts.name)),
	}
	w.retries.Store(int32(opts.retries))
	return w
}

func (w *Worker) Name() string { return w.opts.name }

func (w *Worker) State() State { return State(w.state.Load()) }

// Served returns the number of envelopes executed so far.
func (w *Worker) Served() uint64 { return w.served.Load() }

// RetriesLeft returns the remaining broker error budget.
func (w *Worker) RetriesLeft() int { return int(w.retries.Load()) }

// Run serves until ctx ends, which returns nil, or until the broker keeps
// failing for the whole retry budget, which returns ErrRetriesExhausted.
func (w *Worker) Run(ctx context.Context) error {
	var conn broker.Conn
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()
	w.logger.Info("worker started", zap.Strings("queues", w.opts.queues))
	for ctx.Err() == nil {
		var err error
		if conn == nil {
			conn, err = w.connect(ctx)
		} else {
			err = w.serve(ctx, conn)
		}
		if err == nil {
			w.connected()
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if conn != nil && !broker.Retryable(err) {
			w.logger.Error("job failed", zap.Error(err))
			continue
		}

		left := w.retries.Add(-1)
		w.logger.Warn("broker error", zap.Error(err), zap.Int32("retries_left", left))
		if left <= 0 {
			w.state.Store(int32(Fatal))
			w.logger.Error("giving up on broker", zap.Error(err))
			return fmt.Errorf("worker %s: %w: %w", w.opts.name, ErrRetriesExhausted, err)
		}
		w.state.Store(int32(Retrying))
		if !sleep(ctx, w.opts.retryBackoff) {
			break
		}
		if conn != nil {
			if err := conn.Reconnect(ctx); err != nil {
				w.logger.Warn("reconnect failed", zap.Error(err))
			}
		}
	}
	w.logger.Info("worker stopped", zap.Uint64("served", w.Served()))
	return nil
}

func (w *Worker) connected() {
	if w.State() != Connected {
		w.logger.Info("broker connection restored")
	}
	w.state.Store(int32(Connected))
	w.retries.Store(int32(w.opts.retries))
}

func (w *Worker) connect(ctx context.Context) (broker.Conn, error) {
	conn, err := w.dial(ctx, w.host, w.port)
	if err != nil {
		return nil, err
	}
	for _, q := range w.opts.queues {
		if err := conn.Watch(q); err != nil {
			conn.Close()
			return nil, fmt.Errorf("watch %q: %w", q, err)
		}
	}
	if !contains(w.opts.queues, broker.DefaultTube) {
		if err := conn.Ignore(broker.DefaultTube); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ignore default: %w", err)
		}
	}
	return conn, nil
}

func (w *Worker) serve(ctx context.Context, conn broker.Conn) error {
	job, err := conn.Reserve(ctx, w.opts.reserveTimeout)
	if errors.Is(err, broker.ErrTimeout) {
		return nil
	}
	if err != nil {
		return err
	}
	return w.handle(ctx, conn, job)
}

// handle deletes job before running it, so an envelope runs at most once.
func (w *Worker) handle(ctx context.Context, conn broker.Conn, job *broker.Job) error {
	dc, decodeErr := task.DecodeCall(w.opts.codec, job.Body)
	if err := job.Delete(ctx); err != nil {
		if !errors.Is(err, broker.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", job.ID, err)
		}
		w.logger.Warn("job no longer reserved", zap.String("job", job.ID))
	}
	if decodeErr != nil {
		w.logger.Error("undecodable job dropped", zap.String("job", job.ID), zap.Error(decodeErr))
		return nil
	}

	log := w.logger.With(zap.Stringer("call", dc))
	log.Debug("executing")
	res := w.registry.Invoke(ctx, w.opts.codec, dc)
	w.served.Add(1)
	if res.Exception != nil {
		log.Info("task failed", zap.Error(res.Exception))
	}
	if !dc.ExpectResult {
		return nil
	}

	body, err := task.EncodeResult(w.opts.codec, res)
	if err != nil {
		log.Error("result not encodable", zap.Error(err))
		return nil
	}
	if err := conn.Use(dc.ResultQueue); err != nil {
		return fmt.Errorf("use %q: %w", dc.ResultQueue, err)
	}
	_, err = conn.Put(ctx, body, broker.DefaultTTR)
	if uerr := conn.Use(broker.DefaultTube); err == nil {
		err = uerr
	}
	if err != nil {
		return fmt.Errorf("publish result %s: %w", dc, err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
