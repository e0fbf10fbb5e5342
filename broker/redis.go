package broker

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis layout, under the configured prefix:
//
//	<prefix>:tube:<name>  list of ready job ids, LPUSH in, BRPOP out
//	<prefix>:job:<id>     hash with body, tube and ttr (ms)
//	<prefix>:reserved     sorted set of reserved ids scored by deadline (ms)
type redisConn struct {
	opts      redis.Options
	client    *redis.Client
	prefix    string
	pollBlock time.Duration
	logger    *zap.Logger

	using    string
	watching watchlist
}

// RedisDialer returns a DialFunc opening Redis-backed connections.
func RedisDialer(options ...Option) DialFunc {
	s := newSettings(options)
	return func(ctx context.Context, host string, port int) (Conn, error) {
		opts := *s.base
		opts.Addr = net.JoinHostPort(host, strconv.Itoa(port))
		c := newRedisConn(opts, s)
		if err := c.connect(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// NewRedisConn wraps an existing client. Reconnect reopens a client with
// the same options.
func NewRedisConn(client *redis.Client, options ...Option) Conn {
	c := newRedisConn(*client.Options(), newSettings(options))
	c.client = client
	return c
}

func newRedisConn(opts redis.Options, s *settings) *redisConn {
	return &redisConn{
		opts:      opts,
		prefix:    s.prefix,
		pollBlock: s.pollBlock,
		logger:    s.logger,
		using:     DefaultTube,
		watching:  watchlist{DefaultTube},
	}
}

func (c *redisConn) connect(ctx context.Context) error {
	opts := c.opts
	client := redis.NewClient(&opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return opErr("connect", err)
	}
	c.client = client
	return nil
}

func (c *redisConn) tubeKey(tube string) string { return c.prefix + ":tube:" + tube }
func (c *redisConn) jobKey(id string) string     { return c.prefix + ":job:" + id }
func (c *redisConn) reservedKey() string         { return c.prefix + ":reserved" }

func (c *redisConn) Use(tube string) error {
	if tube == "" {
		return ErrBadTube
	}
	c.using = tube
	return nil
}

func (c *redisConn) Using() string { return c.using }

func (c *redisConn) Put(ctx context.Context, body []byte, ttr time.Duration) (string, error) {
	if c.client == nil {
		return "", ErrClosed
	}
	id := nextID()
	ttr = ttrOrDefault(ttr)
	keys := []string{c.jobKey(id), c.tubeKey(c.using)}
	if err := putLua.Run(ctx, c.client, keys, id, body, c.using, ttr.Milliseconds()).Err(); err != nil {
		return "", opErr("put", err)
	}
	return id, nil
}

func (c *redisConn) Watch(tube string) error {
	if tube == "" {
		return ErrBadTube
	}
	c.watching.add(tube)
	return nil
}

func (c *redisConn) Ignore(tube string) error { return c.watching.remove(tube) }

func (c *redisConn) Watching() []string { return c.watching.clone() }

func (c *redisConn) Reserve(ctx context.Context, timeout time.Duration) (*Job, error) {
	if c.client == nil {
		return nil, ErrClosed
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	keys := make([]string, 0, len(c.watching))
	for _, t := range c.watching {
		keys = append(keys, c.tubeKey(t))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := requeueLua.Run(ctx, c.client, []string{c.reservedKey()}, nowMillis(), c.prefix).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, c.ctxOr(ctx, "reserve", err)
		}

		block := c.pollBlock
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return nil, ErrTimeout
			}
			block = min(block, left)
		}
		if block < time.Second {
			block = time.Second
		}

		res, err := c.client.BRPop(ctx, block.Truncate(time.Second), keys...).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, c.ctxOr(ctx, "reserve", err)
		}
		id := res[1]

		fields, err := reserveLua.Run(ctx, c.client, []string{c.jobKey(id), c.reservedKey()}, id, nowMillis()).StringSlice()
		if errors.Is(err, redis.Nil) {
			c.logger.Debug("popped job vanished", zap.String("job", id))
			continue
		}
		if err != nil {
			return nil, c.ctxOr(ctx, "reserve", err)
		}
		ttr, _ := strconv.ParseInt(fields[2], 10, 64)
		return &Job{
			ID:   id,
			Tube: fields[1],
			Body: []byte(fields[0]),
			TTR:  time.Duration(ttr) * time.Millisecond,
			conn: c,
		}, nil
	}
}

func (c *redisConn) Delete(ctx context.Context, id string) error {
	if c.client == nil {
		return ErrClosed
	}
	n, err := deleteLua.Run(ctx, c.client, []string{c.jobKey(id), c.reservedKey()}, id).Int()
	if err != nil {
		return opErr("delete", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *redisConn) Reconnect(ctx context.Context) error {
	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}
	return c.connect(ctx)
}

func (c *redisConn) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// ctxOr prefers the context error so cancellation is not mistaken for a
// broker failure.
func (c *redisConn) ctxOr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return opErr(op, err)
}

func nowMillis() int64 { return time.Now().UnixMilli() }
