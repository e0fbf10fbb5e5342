package config

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/codec"
	"github.com/csams/jack/manager"
	"github.com/csams/jack/server"
)

// Dialer returns the broker dialer for the configured backend. Every call
// with the memory backend returns a dialer on a fresh Hub.
func (c BrokerConfig) Dialer(l *zap.Logger) broker.DialFunc {
	if c.Backend == "memory" {
		return broker.NewHub().Dialer()
	}
	return broker.RedisDialer(
		broker.WithLogger(l),
		broker.WithPrefix(c.Prefix),
		broker.WithRedisOptions(&redis.Options{DB: c.DB, Password: c.Password}),
	)
}

// EnvelopeCodec returns the configured codec.
func (c *Config) EnvelopeCodec() (codec.Codec, error) {
	return codec.Lookup(c.Codec)
}

func (c ManagerConfig) Options(cd codec.Codec, l *zap.Logger) []manager.Option {
	return []manager.Option{
		manager.WithPoolSize(c.PoolSize),
		manager.WithPollInterval(c.PollInterval),
		manager.WithResultTimeout(c.ResultTimeout),
		manager.WithCodec(cd),
		manager.WithLogger(l),
	}
}

func (c WorkerConfig) Options(cd codec.Codec, l *zap.Logger) []server.Option {
	return []server.Option{
		server.WithQueues(c.Queues...),
		server.WithReserveTimeout(c.ReserveTimeout),
		server.WithRetries(c.Retries),
		server.WithRetryBackoff(c.RetryBackoff),
		server.WithCodec(cd),
		server.WithLogger(l),
	}
}
