package server

import (
	"time"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/codec"
	"go.uber.org/zap"
)

const (
	DefaultReserveTimeout = 2 * time.Second
	DefaultRetries        = 3
	DefaultRetryBackoff   = 2 * time.Second
)

type settings struct {
	name           string
	queues         []string
	reserveTimeout time.Duration
	retries        int
	retryBackoff   time.Duration
	codec          codec.Codec
	logger         *zap.Logger
}

type Option func(*settings)

func newSettings(options []Option) settings {
	s := settings{
		queues:         []string{broker.DefaultTube},
		reserveTimeout: DefaultReserveTimeout,
		retries:        DefaultRetries,
		retryBackoff:   DefaultRetryBackoff,
		codec:          codec.JSON(),
		logger:         zap.NewNop(),
	}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// WithName overrides the generated worker name.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithQueues sets the channels the worker serves. default is ignored
// unless it is listed.
func WithQueues(queues ...string) Option {
	return func(s *settings) {
		if len(queues) > 0 {
			s.queues = append([]string(nil), queues...)
		}
	}
}

func WithReserveTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.reserveTimeout = d
		}
	}
}

// WithRetries sets how many consecutive broker errors a worker survives.
func WithRetries(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.retries = n
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.retryBackoff = d
		}
	}
}

func WithCodec(c codec.Codec) Option {
	return func(s *settings) {
		if c != nil {
			s.codec = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
