package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock. AfterFunc callbacks run
// synchronously inside Advance, in deadline order, on the caller's
// goroutine. Callbacks scheduled with a non-positive delay run
// synchronously inside AfterFunc.
//
// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	f        func()
	done     bool
}

// Fake returns a FakeClock reading start until advanced.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to run once the clock has been advanced by d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	if d <= 0 {
		f()
		return &fakeHandle{clock: c, timer: &fakeTimer{done: true}}
	}

	c.mu.Lock()
	t := &fakeTimer{deadline: c.now.Add(d), f: f}
	c.pending = append(c.pending, t)
	c.mu.Unlock()

	return &fakeHandle{clock: c, timer: t}
}

// Advance moves the clock forward by d and runs every callback whose
// deadline has been reached. Callbacks may schedule new timers; those fire
// in the same call if their deadline also falls within the advanced window.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.popDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.done {
			n++
		}
	}
	return n
}

// popDue removes and returns the earliest live timer due at or before
// target. Callers hold c.mu.
func (c *FakeClock) popDue(target time.Time) *fakeTimer {
	live := c.pending[:0]
	for _, t := range c.pending {
		if !t.done {
			live = append(live, t)
		}
	}
	c.pending = live

	sort.SliceStable(c.pending, func(i, j int) bool {
		return c.pending[i].deadline.Before(c.pending[j].deadline)
	})
	if len(c.pending) == 0 || c.pending[0].deadline.After(target) {
		return nil
	}

	t := c.pending[0]
	t.done = true
	c.pending = c.pending[1:]
	return t
}

type fakeHandle struct {
	clock *FakeClock
	timer *fakeTimer
}

func (h *fakeHandle) Stop() bool {
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	if h.timer.done {
		return false
	}
	h.timer.done = true
	return true
}
