package fifo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/csams/jack/internal/fifo"
)

func TestOrder(t *testing.T) {
	q := fifo.New[int]()
	for i := range 5 {
		require.NoError(t, q.Put(i))
	}
	require.Equal(t, 5, q.Len())
	for i := range 5 {
		v, err := q.Get(t.Context(), time.Second)
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
}

func TestGetTimeout(t *testing.T) {
	q := fifo.New[string]()
	_, err := q.Get(t.Context(), 10*time.Millisecond)
	require.ErrorIs(t, err, fifo.ErrTimeout)
}

func TestGetContext(t *testing.T) {
	q := fifo.New[string]()
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Get(ctx, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseWakesWaiters(t *testing.T) {
	q := fifo.New[int]()
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Get(context.Background(), 0)
			errs <- err
		}()
	}
	time.Sleep(10 * time.Millisecond)
	require.Empty(t, q.Close())
	wg.Wait()
	close(errs)
	for err := range errs {
		require.ErrorIs(t, err, fifo.ErrClosed)
	}
	require.ErrorIs(t, q.Put(1), fifo.ErrClosed)
}

func TestCloseReturnsLeftovers(t *testing.T) {
	q := fifo.New[int]()
	require.NoError(t, q.Put(1))
	require.NoError(t, q.Put(2))
	require.Equal(t, []int{1, 2}, q.Close())
	require.Nil(t, q.Close())
}

func TestConcurrentProducers(t *testing.T) {
	q := fifo.New[int]()
	var wg sync.WaitGroup
	for p := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				_ = q.Put(p*100 + i)
			}
		}()
	}

	seen := make(map[int]bool)
	for range 1000 {
		v, err := q.Get(t.Context(), time.Second)
		require.NoError(t, err)
		seen[v] = true
	}
	wg.Wait()
	require.Len(t, seen, 1000)
}
