package jack

import (
	"time"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/codec"
	"github.com/csams/jack/manager"
	"github.com/csams/jack/task"
	"go.uber.org/zap"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 6379
)

type Option func(*Engine)

func WithCodec(c codec.Codec) Option {
	return func(e *Engine) {
		if c != nil {
			e.codec = c
		}
	}
}

// WithDialer sets how managers and Apply reach the broker. The default
// dials Redis.
func WithDialer(d broker.DialFunc) Option {
	return func(e *Engine) {
		if d != nil {
			e.dial = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRegistry shares an existing delegate registry.
func WithRegistry(r *task.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithBroker sets the address tasks dispatch to unless defined otherwise.
func WithBroker(host string, port int) Option {
	return func(e *Engine) {
		if host != "" {
			e.host = host
		}
		if port > 0 {
			e.port = port
		}
	}
}

// WithManagerOptions applies opts to every manager the engine connects.
func WithManagerOptions(opts ...manager.Option) Option {
	return func(e *Engine) {
		e.managerOpts = append(e.managerOpts, opts...)
	}
}

// WithPollInterval bounds each reserve of a synchronous Apply.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithResultTimeout limits how long a synchronous Apply waits.
func WithResultTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.resultTimeout = d
		}
	}
}

// TaskOption configures how a task is dispatched.
type TaskOption func(*Task)

func WithHost(host string) TaskOption {
	return func(t *Task) {
		if host != "" {
			t.host = host
		}
	}
}

func WithPort(port int) TaskOption {
	return func(t *Task) {
		if port > 0 {
			t.port = port
		}
	}
}

// WithQueue sets the channel the task's envelopes are put on.
func WithQueue(q string) TaskOption {
	return func(t *Task) {
		if q != "" {
			t.queue = q
		}
	}
}

// WithoutResult makes dispatches fire-and-forget.
func WithoutResult() TaskOption {
	return func(t *Task) { t.expect = false }
}

func WithTTR(d time.Duration) TaskOption {
	return func(t *Task) {
		if d > 0 {
			t.ttr = d
		}
	}
}

// WithChunkSize sets how many bundles a map chunk carries.
func WithChunkSize(n int) TaskOption {
	return func(t *Task) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}
