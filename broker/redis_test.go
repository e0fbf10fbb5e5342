package broker_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/csams/jack/broker"
)

func TestRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	port, err := strconv.Atoi(srv.Port())
	require.NoError(t, err)

	dial := broker.RedisDialer(broker.WithPrefix("test"), broker.WithPollBlock(time.Second))
	testConn(t, func(t *testing.T) broker.Conn {
		c, err := dial(t.Context(), srv.Host(), port)
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func TestRedisKeys(t *testing.T) {
	srv := miniredis.RunT(t)
	port, err := strconv.Atoi(srv.Port())
	require.NoError(t, err)

	c, err := broker.RedisDialer(broker.WithPrefix("k"))(t.Context(), srv.Host(), port)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Use("jobs"))
	id, err := c.Put(t.Context(), []byte("body"), 3*time.Second)
	require.NoError(t, err)

	list, err := srv.List("k:tube:jobs")
	require.NoError(t, err)
	require.Equal(t, []string{id}, list)
	require.Equal(t, "body", srv.HGet("k:job:"+id, "body"))
	require.Equal(t, "3000", srv.HGet("k:job:"+id, "ttr"))

	require.NoError(t, broker.WatchOnly(c, "jobs"))
	job, err := c.Reserve(t.Context(), time.Second)
	require.NoError(t, err)
	members, err := srv.ZMembers("k:reserved")
	require.NoError(t, err)
	require.Equal(t, []string{job.ID}, members)

	require.NoError(t, job.Delete(t.Context()))
	require.False(t, srv.Exists("k:job:"+id))
}

func TestRedisDialFailure(t *testing.T) {
	srv := miniredis.RunT(t)
	port, err := strconv.Atoi(srv.Port())
	require.NoError(t, err)
	host := srv.Host()
	srv.Close()

	_, err = broker.RedisDialer()(t.Context(), host, port)
	require.Error(t, err)
	require.True(t, broker.IsConnError(err))
}

func TestRedisSubMillisecondTTR(t *testing.T) {
	srv := miniredis.RunT(t)
	port, err := strconv.Atoi(srv.Port())
	require.NoError(t, err)

	c, err := broker.RedisDialer(broker.WithPrefix("k"))(t.Context(), srv.Host(), port)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	id, err := c.Put(t.Context(), []byte("body"), 500*time.Microsecond)
	require.NoError(t, err)
	require.Equal(t, "1", srv.HGet("k:job:"+id, "ttr"))
}
