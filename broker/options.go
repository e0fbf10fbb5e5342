package broker

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type settings struct {
	logger    *zap.Logger
	prefix    string
	pollBlock time.Duration
	base      *redis.Options
}

// Option configures the Redis broker connections.
type Option func(*settings)

func newSettings(options []Option) *settings {
	s := &settings{
		logger:    zap.NewNop(),
		prefix:    "jack",
		pollBlock: time.Second,
		base:      &redis.Options{},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPrefix namespaces every Redis key the connection touches.
func WithPrefix(p string) Option {
	return func(s *settings) {
		if p != "" {
			s.prefix = p
		}
	}
}

// WithPollBlock bounds a single BRPOP. Redis blocks in whole seconds, so
// the value is rounded up to at least one second.
func WithPollBlock(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pollBlock = d
		}
	}
}

// WithRedisOptions sets the client options (pool size, timeouts, auth, DB).
// Addr is overwritten by the dialer.
func WithRedisOptions(o *redis.Options) Option {
	return func(s *settings) {
		if o != nil {
			s.base = o
		}
	}
}
