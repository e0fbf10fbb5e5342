// Package broker defines the channel protocol the engine needs from an
// external job queue and ships two implementations of it: one on Redis and
// an in-process Hub.
//
// The protocol follows beanstalkd: a connection publishes to the channel
// it uses, reserves from the channels it watches, and deletes what it has
// reserved. A reserved job that is not deleted within its time-to-run goes
// back to its channel.
package broker

import (
	"context"
	"time"
)

const (
	// DefaultTube is used and watched by every new connection.
	DefaultTube = "default"
	// DefaultTTR is the time-to-run for jobs put without one.
	DefaultTTR = 120 * time.Second
)

// Conn is one client connection. A Conn is owned by a single goroutine.
type Conn interface {
	// Use selects the channel Put publishes to.
	Use(tube string) error
	Using() string
	// Put publishes body and returns the job id.
	Put(ctx context.Context, body []byte, ttr time.Duration) (string, error)
	// Watch adds tube to the channels Reserve takes jobs from.
	Watch(tube string) error
	// Ignore removes tube from the watch list. Ignoring the last watched
	// channel fails with ErrNotIgnored.
	Ignore(tube string) error
	Watching() []string
	// Reserve waits up to timeout for a job on a watched channel and
	// returns ErrTimeout if none arrives. A non-positive timeout waits
	// until ctx ends.
	Reserve(ctx context.Context, timeout time.Duration) (*Job, error)
	// Delete acknowledges a reserved job.
	Delete(ctx context.Context, id string) error
	// Reconnect replaces the underlying connection, keeping the used and
	// watched channels.
	Reconnect(ctx context.Context) error
	Close() error
}

// DialFunc opens a connection to the broker at host:port.
type DialFunc func(ctx context.Context, host string, port int) (Conn, error)

// Job is a reserved job.
type Job struct {
	ID   string
	Tube string
	Body []byte
	TTR  time.Duration

	conn Conn
}

// Delete acknowledges the job on the connection that reserved it.
func (j *Job) Delete(ctx context.Context) error {
	return j.conn.Delete(ctx, j.ID)
}

// WatchOnly makes tube the only channel c reserves from.
func WatchOnly(c Conn, tube string) error {
	if err := c.Watch(tube); err != nil {
		return err
	}
	for _, t := range c.Watching() {
		if t == tube {
			continue
		}
		if err := c.Ignore(t); err != nil {
			return err
		}
	}
	return nil
}

// watchlist keeps watched channels in the order they were added.
type watchlist []string

func (w watchlist) has(tube string) bool {
	for _, t := range w {
		if t == tube {
			return true
		}
	}
	return false
}

func (w *watchlist) add(tube string) {
	if !w.has(tube) {
		*w = append(*w, tube)
	}
}

func (w *watchlist) remove(tube string) error {
	if !w.has(tube) {
		return nil
	}
	if len(*w) == 1 {
		return ErrNotIgnored
	}
	out := (*w)[:0]
	for _, t := range *w {
		if t != tube {
			out = append(out, t)
		}
	}
	*w = out
	return nil
}

func (w watchlist) clone() []string {
	return append([]string(nil), w...)
}

// ttrOrDefault rounds positive ttrs below the broker's millisecond
// resolution up to one millisecond.
func ttrOrDefault(ttr time.Duration) time.Duration {
	switch {
	case ttr <= 0:
		return DefaultTTR
	case ttr < time.Millisecond:
		return time.Millisecond
	}
	return ttr
}
