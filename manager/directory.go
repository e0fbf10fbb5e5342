package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/csams/jack/broker"
)

// Addr is a broker address.
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string { return fmt.Sprintf("%s:%d", a.Host, a.Port) }

// Directory holds at most one HostManager per broker address.
type Directory struct {
	dial broker.DialFunc
	opts []Option

	mu       sync.Mutex
	managers map[Addr]*HostManager
}

// NewDirectory returns a directory whose managers dial with dial and
// start with opts.
func NewDirectory(dial broker.DialFunc, opts ...Option) *Directory {
	return &Directory{dial: dial, opts: opts, managers: make(map[Addr]*HostManager)}
}

// Create starts a manager for host:port. opts are applied after the
// directory's own.
func (d *Directory) Create(ctx context.Context, host string, port int, opts ...Option) (*HostManager, error) {
	addr := Addr{host, port}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.managers[addr]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, addr)
	}
	all := append(append([]Option(nil), d.opts...), opts...)
	m, err := New(ctx, host, port, d.dial, all...)
	if err != nil {
		return nil, err
	}
	d.managers[addr] = m
	return m, nil
}

func (d *Directory) Get(host string, port int) (*HostManager, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.managers[Addr{host, port}]
	return m, ok
}

// Remove closes and forgets the manager for host:port.
func (d *Directory) Remove(host string, port int) error {
	addr := Addr{host, port}
	d.mu.Lock()
	m, ok := d.managers[addr]
	delete(d.managers, addr)
	d.mu.Unlock()
	if !ok {
		return nil
	}
	return m.Close()
}

func (d *Directory) Addrs() []Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Addr, 0, len(d.managers))
	for a := range d.managers {
		out = append(out, a)
	}
	return out
}

// Close closes every manager and empties the directory.
func (d *Directory) Close() error {
	d.mu.Lock()
	managers := d.managers
	d.managers = make(map[Addr]*HostManager)
	d.mu.Unlock()

	var errs []error
	for addr, m := range managers {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
		}
	}
	return errors.Join(errs...)
}
