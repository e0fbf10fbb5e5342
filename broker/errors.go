package broker

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned by Reserve when no job arrived in time.
	ErrTimeout = errors.New("broker: reserve timed out")
	// ErrNotIgnored is returned when ignoring the last watched channel.
	ErrNotIgnored = errors.New("broker: cannot ignore the only watched tube")
	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("broker: connection closed")
	// ErrNotFound is returned when deleting a job that is not reserved.
	ErrNotFound = errors.New("broker: job not found")
	// ErrUnavailable is reported by a Hub that is down.
	ErrUnavailable = errors.New("broker: unavailable")
	// ErrBadTube is returned for empty channel names.
	ErrBadTube = errors.New("broker: bad tube name")
)

// OpError reports a failure talking to the broker itself.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return fmt.Sprintf("broker %s: %v", e.Op, e.Err) }

func (e *OpError) Unwrap() error { return e.Err }

// IsConnError reports whether err comes from the broker connection rather
// than from the caller.
func IsConnError(err error) bool {
	var op *OpError
	return errors.As(err, &op)
}

func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// Retryable reports whether reconnecting may cure err: a broker failure,
// or a connection left closed by a failed Reconnect.
func Retryable(err error) bool {
	return IsConnError(err) || errors.Is(err, ErrClosed)
}
