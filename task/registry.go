// Package task holds the delegate registry, the envelope and result types
// exchanged through the broker, and the code that executes an envelope.
package task

import (
	"fmt"
	"sort"
	"sync"
)

// Func is a delegate: an ordinary function made remotely invocable. It
// binds its arguments from the Context and returns a value the codec can
// encode.
type Func func(c *Context) (any, error)

// Registry maps task names to delegates. Dispatching and executing
// processes must register the same names.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds fn under name.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.funcs[name] = fn
	return nil
}

// Get looks up a delegate.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
