package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/csams/jack/broker"
)

func TestHub(t *testing.T) {
	hub := broker.NewHub()
	testConn(t, func(t *testing.T) broker.Conn {
		c, err := hub.Dial(t.Context())
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func TestHubDown(t *testing.T) {
	hub := broker.NewHub()
	c, err := hub.Dial(t.Context())
	require.NoError(t, err)

	hub.SetDown(true)
	_, err = c.Put(t.Context(), []byte("x"), 0)
	require.True(t, broker.IsConnError(err))
	_, err = c.Reserve(t.Context(), 10*time.Millisecond)
	require.ErrorIs(t, err, broker.ErrUnavailable)
	require.True(t, broker.IsConnError(c.Reconnect(t.Context())))
	_, err = hub.Dial(t.Context())
	require.True(t, broker.IsConnError(err))

	hub.SetDown(false)
	require.NoError(t, c.Reconnect(t.Context()))
	_, err = c.Put(t.Context(), []byte("x"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, hub.Ready(broker.DefaultTube))
}

func TestHubDownWakesReserve(t *testing.T) {
	hub := broker.NewHub()
	c, err := hub.Dial(t.Context())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Reserve(context.Background(), 0)
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	hub.SetDown(true)
	require.True(t, broker.IsConnError(<-errc))
}

func TestHubReserveContext(t *testing.T) {
	hub := broker.NewHub()
	c, err := hub.Dial(t.Context())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Reserve(ctx, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, broker.IsConnError(err))
}

func TestHubReserveWakesOnPut(t *testing.T) {
	hub := broker.NewHub()
	producer, err := hub.Dial(t.Context())
	require.NoError(t, err)
	consumer, err := hub.Dial(t.Context())
	require.NoError(t, err)

	got := make(chan string, 1)
	go func() {
		job, err := consumer.Reserve(context.Background(), 5*time.Second)
		if err != nil {
			got <- err.Error()
			return
		}
		got <- string(job.Body)
	}()
	time.Sleep(10 * time.Millisecond)
	_, err = producer.Put(t.Context(), []byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, "hello", <-got)
	require.Equal(t, 1, hub.Reserved())
}

func TestRetryable(t *testing.T) {
	hub := broker.NewHub()
	c, err := hub.Dial(t.Context())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Reserve(t.Context(), time.Millisecond)
	require.ErrorIs(t, err, broker.ErrClosed)
	require.False(t, broker.IsConnError(err))
	require.True(t, broker.Retryable(err))
	require.False(t, broker.Retryable(broker.ErrBadTube))
	require.False(t, broker.Retryable(context.Canceled))
}
