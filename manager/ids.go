package manager

import "sync/atomic"

var seq atomic.Uint64

// NextID returns the next request id of this process. Ids start at 1 and
// are never reused.
func NextID() uint64 {
	return seq.Add(1)
}
