package manager

import (
	"time"

	"github.com/csams/jack/codec"
	"go.uber.org/zap"
)

const (
	DefaultPoolSize     = 10
	DefaultPollInterval = 2 * time.Second
)

type settings struct {
	poolSize      int
	pollInterval  time.Duration
	resultTimeout time.Duration
	codec         codec.Codec
	logger        *zap.Logger
}

type Option func(*settings)

func newSettings(options []Option) settings {
	s := settings{
		poolSize:     DefaultPoolSize,
		pollInterval: DefaultPollInterval,
		codec:        codec.JSON(),
		logger:       zap.NewNop(),
	}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// WithPoolSize sets the number of proxies, each with its own connection.
func WithPoolSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.poolSize = n
		}
	}
}

// WithPollInterval bounds every wait of a proxy so it notices shutdown.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithResultTimeout limits how long a proxy waits for a reply. Zero waits
// forever. A reply that arrives after the timeout stays on its private
// result channel until the broker's storage is cleared; nothing reserves it.
func WithResultTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.resultTimeout = d
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
