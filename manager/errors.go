package manager

import "errors"

var (
	ErrClosed        = errors.New("manager closed")
	ErrUnknownID     = errors.New("unknown request id")
	ErrNoResult      = errors.New("request does not expect a result")
	ErrExists        = errors.New("manager already registered")
	ErrResultTimeout = errors.New("timed out waiting for result")
	ErrNoValue       = errors.New("result has no such value")
)
