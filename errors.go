package jack

import "errors"

// ErrNoManager is returned when no manager serves a task's broker address.
var ErrNoManager = errors.New("no manager for broker address")
