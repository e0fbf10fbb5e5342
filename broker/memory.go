package broker

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Hub is an in-process broker. Connections dialed from the same Hub share
// its channels. It is meant for tests and single-process deployments.
// Expired reservations go back to their channel the next time any
// connection reserves.
type Hub struct {
	mu     sync.Mutex
	tubes  map[string][]string
	jobs   map[string]*memJob
	seq    uint64
	notify chan struct{} // closed and replaced on every put or release
	down   bool
	now    func() time.Time
}

type memJob struct {
	id       string
	seq      uint64
	tube     string
	body     []byte
	ttr      time.Duration
	reserved bool
	deadline time.Time
}

func NewHub() *Hub {
	return &Hub{
		tubes:  make(map[string][]string),
		jobs:   make(map[string]*memJob),
		notify: make(chan struct{}),
		now:    time.Now,
	}
}

// Dial opens a connection on the hub.
func (h *Hub) Dial(_ context.Context) (Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return nil, opErr("connect", ErrUnavailable)
	}
	return &memConn{hub: h, using: DefaultTube, watching: watchlist{DefaultTube}}, nil
}

// Dialer adapts Dial to a DialFunc; host and port are ignored.
func (h *Hub) Dialer() DialFunc {
	return func(ctx context.Context, _ string, _ int) (Conn, error) {
		return h.Dial(ctx)
	}
}

// SetDown makes every operation fail with an OpError until it is called
// again with false. Waiting reservations fail too.
func (h *Hub) SetDown(down bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.down = down
	h.wake()
}

// Ready returns the number of jobs waiting on tube.
func (h *Hub) Ready(tube string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseExpired()
	return len(h.tubes[tube])
}

// Reserved returns the number of reserved jobs.
func (h *Hub) Reserved() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, j := range h.jobs {
		if j.reserved {
			n++
		}
	}
	return n
}

// wake must be called with h.mu held.
func (h *Hub) wake() {
	close(h.notify)
	h.notify = make(chan struct{})
}

// releaseExpired must be called with h.mu held. Expired jobs are pushed
// back in deadline order, so the one that expired last is reserved first,
// matching the redis requeue script.
func (h *Hub) releaseExpired() {
	now := h.now()
	var expired []*memJob
	for _, j := range h.jobs {
		if j.reserved && !now.Before(j.deadline) {
			expired = append(expired, j)
		}
	}
	if len(expired) == 0 {
		return
	}
	slices.SortFunc(expired, func(a, b *memJob) int {
		if c := a.deadline.Compare(b.deadline); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	for _, j := range expired {
		j.reserved = false
		h.tubes[j.tube] = append([]string{j.id}, h.tubes[j.tube]...)
	}
	h.wake()
}

func (h *Hub) put(tube string, body []byte, ttr time.Duration) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return "", opErr("put", ErrUnavailable)
	}
	h.seq++
	id := strconv.FormatUint(h.seq, 10)
	h.jobs[id] = &memJob{
		id:   id,
		seq:  h.seq,
		tube: tube,
		body: append([]byte(nil), body...),
		ttr:  ttrOrDefault(ttr),
	}
	h.tubes[tube] = append(h.tubes[tube], id)
	h.wake()
	return id, nil
}

// take pops the first ready job of the first non-empty watched tube. The
// returned channel is signalled when taking again could succeed.
func (h *Hub) take(tubes []string) (*memJob, <-chan struct{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return nil, nil, opErr("reserve", ErrUnavailable)
	}
	h.releaseExpired()
	for _, t := range tubes {
		ids := h.tubes[t]
		if len(ids) == 0 {
			continue
		}
		j := h.jobs[ids[0]]
		h.tubes[t] = ids[1:]
		j.reserved = true
		j.deadline = h.now().Add(j.ttr)
		return j, nil, nil
	}
	return nil, h.notify, nil
}

func (h *Hub) delete(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return opErr("delete", ErrUnavailable)
	}
	j, ok := h.jobs[id]
	if !ok || !j.reserved {
		return ErrNotFound
	}
	delete(h.jobs, id)
	return nil
}

type memConn struct {
	hub      *Hub
	using    string
	watching watchlist
	closed   bool
}

func (c *memConn) Use(tube string) error {
	if tube == "" {
		return ErrBadTube
	}
	c.using = tube
	return nil
}

func (c *memConn) Using() string { return c.using }

func (c *memConn) Put(_ context.Context, body []byte, ttr time.Duration) (string, error) {
	if c.closed {
		return "", ErrClosed
	}
	return c.hub.put(c.using, body, ttr)
}

func (c *memConn) Watch(tube string) error {
	if tube == "" {
		return ErrBadTube
	}
	c.watching.add(tube)
	return nil
}

func (c *memConn) Ignore(tube string) error { return c.watching.remove(tube) }

func (c *memConn) Watching() []string { return c.watching.clone() }

func (c *memConn) Reserve(ctx context.Context, timeout time.Duration) (*Job, error) {
	if c.closed {
		return nil, ErrClosed
	}
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	for {
		j, notify, err := c.hub.take(c.watching)
		if err != nil {
			return nil, err
		}
		if j != nil {
			return &Job{ID: j.id, Tube: j.tube, Body: j.body, TTR: j.ttr, conn: c}, nil
		}
		select {
		case <-notify:
		case <-expired:
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *memConn) Delete(_ context.Context, id string) error {
	if c.closed {
		return ErrClosed
	}
	return c.hub.delete(id)
}

func (c *memConn) Reconnect(_ context.Context) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.hub.down {
		return opErr("connect", ErrUnavailable)
	}
	c.closed = false
	return nil
}

func (c *memConn) Close() error {
	c.closed = true
	return nil
}
