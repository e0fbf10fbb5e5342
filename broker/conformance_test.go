package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/csams/jack/broker"
)

// testConn runs the channel protocol checks every implementation must pass.
func testConn(t *testing.T, dial func(t *testing.T) broker.Conn) {
	t.Run("defaults", func(t *testing.T) {
		c := dial(t)
		require.Equal(t, broker.DefaultTube, c.Using())
		require.Equal(t, []string{broker.DefaultTube}, c.Watching())
	})

	t.Run("fifo", func(t *testing.T) {
		c := dial(t)
		ctx := t.Context()
		require.NoError(t, c.Use("fifo"))
		require.NoError(t, broker.WatchOnly(c, "fifo"))
		for _, body := range []string{"a", "b", "c"} {
			_, err := c.Put(ctx, []byte(body), time.Minute)
			require.NoError(t, err)
		}
		for _, want := range []string{"a", "b", "c"} {
			job, err := c.Reserve(ctx, time.Second)
			require.NoError(t, err)
			require.Equal(t, want, string(job.Body))
			require.Equal(t, "fifo", job.Tube)
			require.Equal(t, time.Minute, job.TTR)
			require.NoError(t, job.Delete(ctx))
		}
	})

	t.Run("watch and ignore", func(t *testing.T) {
		producer, consumer := dial(t), dial(t)
		ctx := t.Context()

		require.NoError(t, producer.Use("other"))
		_, err := producer.Put(ctx, []byte("x"), 0)
		require.NoError(t, err)
		require.NoError(t, producer.Use("mine"))
		_, err = producer.Put(ctx, []byte("y"), 0)
		require.NoError(t, err)

		require.NoError(t, consumer.Watch("mine"))
		require.NoError(t, consumer.Ignore(broker.DefaultTube))
		require.Equal(t, []string{"mine"}, consumer.Watching())
		require.ErrorIs(t, consumer.Ignore("mine"), broker.ErrNotIgnored)

		job, err := consumer.Reserve(ctx, time.Second)
		require.NoError(t, err)
		require.Equal(t, "y", string(job.Body))
		require.Equal(t, broker.DefaultTTR, job.TTR)
		require.NoError(t, job.Delete(ctx))

		_, err = consumer.Reserve(ctx, time.Second)
		require.ErrorIs(t, err, broker.ErrTimeout)
	})

	t.Run("delete twice", func(t *testing.T) {
		c := dial(t)
		ctx := t.Context()
		require.NoError(t, c.Use("del"))
		require.NoError(t, broker.WatchOnly(c, "del"))
		_, err := c.Put(ctx, []byte("z"), 0)
		require.NoError(t, err)
		job, err := c.Reserve(ctx, time.Second)
		require.NoError(t, err)
		require.NoError(t, job.Delete(ctx))
		require.ErrorIs(t, job.Delete(ctx), broker.ErrNotFound)
	})

	t.Run("ttr expiry", func(t *testing.T) {
		c := dial(t)
		ctx := t.Context()
		require.NoError(t, c.Use("ttr"))
		require.NoError(t, broker.WatchOnly(c, "ttr"))
		_, err := c.Put(ctx, []byte("again"), 50*time.Millisecond)
		require.NoError(t, err)

		first, err := c.Reserve(ctx, time.Second)
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)

		second, err := c.Reserve(ctx, time.Second)
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
		require.Equal(t, "again", string(second.Body))
		require.NoError(t, second.Delete(ctx))
	})

	t.Run("bad tube", func(t *testing.T) {
		c := dial(t)
		require.ErrorIs(t, c.Use(""), broker.ErrBadTube)
		require.ErrorIs(t, c.Watch(""), broker.ErrBadTube)
	})

	t.Run("closed", func(t *testing.T) {
		c := dial(t)
		require.NoError(t, c.Close())
		_, err := c.Put(context.Background(), []byte("x"), 0)
		require.ErrorIs(t, err, broker.ErrClosed)
		require.NoError(t, c.Reconnect(t.Context()))
		_, err = c.Put(context.Background(), []byte("x"), 0)
		require.NoError(t, err)
	})
}
