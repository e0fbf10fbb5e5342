package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/csams/jack/broker"
	"github.com/csams/jack/codec"
	"github.com/csams/jack/task"
)

// Wait bounds the reply wait of RoundTrip.
type Wait struct {
	// Poll is the length of one reserve slice. Non-positive reserves until
	// ctx ends.
	Poll time.Duration
	// Timeout is the overall deadline. Zero waits forever. A reply that
	// lands after it is left on dc.ResultQueue.
	Timeout time.Duration
	// Stop is checked between slices; returning true abandons the wait
	// with ErrClosed.
	Stop func() bool
}

// Stamp points dc's reply at the private channel of this process.
func Stamp(dc *task.DelayedCall, host string, port int) {
	dc.ResultQueue = task.ResultQueueName(dc.Name, host, port, os.Getpid(), dc.ID, dc.SeqID)
}

// RoundTrip publishes dc on conn and, when dc expects a result, waits for
// the reply on dc.ResultQueue. It returns nil, nil for fire-and-forget
// calls. conn is left watching only the private channel.
func RoundTrip(ctx context.Context, conn broker.Conn, c codec.Codec, dc *task.DelayedCall, w Wait) (*task.ServerResult, error) {
	body, err := task.EncodeCall(c, dc)
	if err != nil {
		return nil, err
	}
	if err := conn.Use(dc.Queue); err != nil {
		return nil, fmt.Errorf("use %q: %w", dc.Queue, err)
	}
	if _, err := conn.Put(ctx, body, dc.TTR); err != nil {
		return nil, fmt.Errorf("put %s: %w", dc, err)
	}
	if !dc.ExpectResult {
		return nil, nil
	}
	if err := broker.WatchOnly(conn, dc.ResultQueue); err != nil {
		return nil, fmt.Errorf("watch %q: %w", dc.ResultQueue, err)
	}

	var deadline time.Time
	if w.Timeout > 0 {
		deadline = time.Now().Add(w.Timeout)
	}
	for {
		if w.Stop != nil && w.Stop() {
			return nil, ErrClosed
		}
		slice := w.Poll
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return nil, fmt.Errorf("%w: %s", ErrResultTimeout, dc)
			}
			if slice <= 0 || left < slice {
				slice = left
			}
		}
		job, err := conn.Reserve(ctx, slice)
		if errors.Is(err, broker.ErrTimeout) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reserve %q: %w", dc.ResultQueue, err)
		}
		res, derr := task.DecodeResult(c, job.Body)
		if err := job.Delete(ctx); err != nil {
			return nil, fmt.Errorf("delete reply %s: %w", job.ID, err)
		}
		if derr != nil {
			return nil, derr
		}
		return res, nil
	}
}
