package pin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kidstube/web/internal/clock"
)

// Registry holds the open challenge of each browser session. Opening a new
// one closes the previous.
type Registry struct {
	clock  clock.Clock
	maxAge time.Duration

	mu    sync.Mutex
	items map[string]*Challenge
}

// NewRegistry creates a registry that forgets challenges idle for maxAge.
func NewRegistry(clk clock.Clock, maxAge time.Duration) *Registry {
	return &Registry{
		clock:  clk,
		maxAge: maxAge,
		items:  make(map[string]*Challenge),
	}
}

// Put makes c the open challenge for sid.
func (r *Registry) Put(sid string, c *Challenge) {
	r.mu.Lock()
	prev := r.items[sid]
	r.items[sid] = c
	r.mu.Unlock()

	if prev != nil && prev != c {
		prev.Close()
	}
}

// Get returns sid's challenge, if one is registered.
func (r *Registry) Get(sid string) (*Challenge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[sid]
	return c, ok
}

// Remove closes and forgets sid's challenge.
func (r *Registry) Remove(sid string) {
	r.mu.Lock()
	c := r.items[sid]
	delete(r.items, sid)
	r.mu.Unlock()

	if c != nil {
		c.Close()
	}
}

// Len returns the number of registered challenges.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Prune forgets closed challenges and ones untouched for maxAge. It
// returns how many were removed.
func (r *Registry) Prune() int {
	now := r.clock.Now()

	r.mu.Lock()
	var stale []*Challenge
	for sid, c := range r.items {
		snap := c.Snapshot()
		if snap.State == StateIdle || now.Sub(c.LastActivity()) >= r.maxAge {
			stale = append(stale, c)
			delete(r.items, sid)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

// Run prunes every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Prune(); n > 0 {
				slog.Debug("pruned PIN challenges", slog.Int("count", n))
			}
		}
	}
}
