package pin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidstube/web/internal/clock"
)

func TestRegistry_PutReplacesAndCloses(t *testing.T) {
	clk := clock.Fake(start)
	r := NewRegistry(clk, time.Minute)

	a := newTestChallenge(&mockVerifier{}, clk, nil)
	b := newTestChallenge(&mockVerifier{}, clk, nil)
	r.Put("s1", a)
	r.Put("s1", b)

	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.Equal(t, StateIdle, a.Snapshot().State)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Prune(t *testing.T) {
	clk := clock.Fake(start)
	r := NewRegistry(clk, time.Minute)

	active := newTestChallenge(&mockVerifier{}, clk, nil)
	closed := newTestChallenge(&mockVerifier{}, clk, nil)
	closed.Close()
	r.Put("active", active)
	r.Put("closed", closed)

	assert.Equal(t, 1, r.Prune())
	assert.Equal(t, 1, r.Len())

	clk.Advance(time.Minute)
	assert.Equal(t, 1, r.Prune())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, StateIdle, active.Snapshot().State)
}

func TestRegistry_Remove(t *testing.T) {
	clk := clock.Fake(start)
	r := NewRegistry(clk, time.Minute)
	c := newTestChallenge(&mockVerifier{}, clk, nil)
	r.Put("s1", c)

	r.Remove("s1")
	r.Remove("missing")

	_, ok := r.Get("s1")
	assert.False(t, ok)
	assert.Equal(t, StateIdle, c.Snapshot().State)
}
