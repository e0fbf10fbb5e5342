package task

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicate   = errors.New("task already registered")
	ErrEmptyName   = errors.New("task name is empty")
	ErrMissingArg  = errors.New("missing argument")
	ErrNoArguments = errors.New("envelope carries no argument bundles")
)

// Exception types set by the engine rather than by a delegate.
const (
	TypePanic            = "panic"
	TypeDispatch         = "DispatchError"
	TypeDelegateNotFound = "DelegateNotFound"
	TypeEncode           = "EncodeError"
)

// Error describes a failure that happened while executing a task,
// possibly in another process. It travels inside a ServerResult.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Is matches another *Error with the same type and message, so a remote
// failure can be compared against a local sentinel built with NewError.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type && t.Message == e.Message
}

// NewError captures err as an exception descriptor.
func NewError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Type: e.Type, Message: e.Message}
	}
	return &Error{Type: fmt.Sprintf("%T", err), Message: err.Error()}
}

// IsRemote reports whether err is a task failure carried back from the
// executing side.
func IsRemote(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
