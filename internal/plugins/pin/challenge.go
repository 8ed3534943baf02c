package pin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kidstube/web/internal/clock"
)

// ErrInvalidDigit is returned by Append for anything but 0-9.
var ErrInvalidDigit = errors.New("pin: not a digit")

// Options are the challenge timings.
type Options struct {
	// SubmitDelay separates the sixth digit from verification so the last
	// indicator is seen filled. Zero submits at once.
	SubmitDelay time.Duration

	// LockoutCloseDelay is how long the lockout message stays before the
	// challenge closes itself.
	LockoutCloseDelay time.Duration

	// VerifyTimeout bounds one Verifier call.
	VerifyTimeout time.Duration
}

// Config describes one challenge.
type Config struct {
	Purpose     Purpose
	Target      Target
	Destination string
	Verifier    Verifier
	Clock       clock.Clock
	Options     Options

	// OnResolve persists a successful outcome. It runs while the challenge
	// is still open and before anyone can observe StateResolved; an error
	// turns the success into an ordinary failure.
	OnResolve func(ctx context.Context, o Outcome) error

	// OnEvent observes verification outcomes. Called without the
	// challenge lock held.
	OnEvent func(Event)
}

// Challenge is one open PIN keypad. All methods are safe for concurrent
// use. Each Close bumps a generation counter; work started under an older
// generation (a verification in flight, a pending timer) is discarded when
// it completes.
type Challenge struct {
	cfg Config

	mu       sync.Mutex
	state    State
	digits   []byte
	attempts int
	message  string
	gen      uint64
	timer    clock.Timer
	touched  time.Time
}

// NewChallenge opens a challenge in StateCollecting.
func NewChallenge(cfg Config) *Challenge {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Challenge{
		cfg:     cfg,
		state:   StateCollecting,
		digits:  make([]byte, 0, PINLength),
		gen:     1,
		touched: cfg.Clock.Now(),
	}
}

// Append adds one digit. It does nothing unless the challenge is collecting
// and has fewer than PINLength digits. The sixth digit schedules
// verification after SubmitDelay.
func (c *Challenge) Append(d rune) error {
	if d < '0' || d > '9' {
		return ErrInvalidDigit
	}

	c.mu.Lock()
	if c.state != StateCollecting || len(c.digits) >= PINLength {
		c.mu.Unlock()
		return nil
	}
	c.digits = append(c.digits, byte(d))
	c.touched = c.cfg.Clock.Now()
	if len(c.digits) < PINLength {
		c.mu.Unlock()
		return nil
	}
	c.state = StateSubmitting
	gen := c.gen
	c.mu.Unlock()

	t := c.cfg.Clock.AfterFunc(c.cfg.Options.SubmitDelay, func() { c.verify(gen) })
	c.keepTimer(gen, StateSubmitting, t)
	return nil
}

// Delete removes the last digit.
func (c *Challenge) Delete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCollecting || len(c.digits) == 0 {
		return
	}
	c.digits = c.digits[:len(c.digits)-1]
	c.touched = c.cfg.Clock.Now()
}

// Clear removes every digit.
func (c *Challenge) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCollecting || len(c.digits) == 0 {
		return
	}
	c.digits = c.digits[:0]
	c.touched = c.cfg.Clock.Now()
}

// Submit verifies what has been entered so far and returns once the result
// is applied. With no digits it does nothing. A partial code fails exactly
// like a wrong one.
func (c *Challenge) Submit() {
	c.mu.Lock()
	if c.state != StateCollecting || len(c.digits) == 0 {
		c.mu.Unlock()
		return
	}
	c.state = StateSubmitting
	gen := c.gen
	c.mu.Unlock()

	c.verify(gen)
}

// Close discards the challenge. A verification still in flight is ignored
// when it returns.
func (c *Challenge) Close() {
	c.mu.Lock()
	t := c.reset()
	c.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

// closeGen closes the challenge only if it has not been closed since gen.
func (c *Challenge) closeGen(gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	t := c.reset()
	c.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

// reset drops all state and returns the pending timer. Callers hold c.mu.
func (c *Challenge) reset() clock.Timer {
	c.gen++
	c.state = StateIdle
	c.digits = c.digits[:0]
	c.attempts = 0
	c.message = ""
	c.touched = c.cfg.Clock.Now()
	t := c.timer
	c.timer = nil
	return t
}

// Snapshot returns a consistent copy for rendering.
func (c *Challenge) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:       c.state,
		Purpose:     c.cfg.Purpose,
		Target:      c.cfg.Target,
		Destination: c.cfg.Destination,
		Digits:      len(c.digits),
		Attempts:    c.attempts,
		Message:     c.message,
	}
}

// LastActivity is when the challenge last changed.
func (c *Challenge) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}

// keepTimer remembers t so Close can stop it, unless the challenge already
// moved on while t was being scheduled.
func (c *Challenge) keepTimer(gen uint64, want State, t clock.Timer) {
	c.mu.Lock()
	if c.gen == gen && c.state == want {
		c.timer = t
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	t.Stop()
}

func (c *Challenge) verifyTimeout() time.Duration {
	if c.cfg.Options.VerifyTimeout > 0 {
		return c.cfg.Options.VerifyTimeout
	}
	return 10 * time.Second
}

// verify resolves the entered digits for generation gen. The Verifier is
// called without the lock held; the result is applied only if the
// challenge is still the one that asked.
func (c *Challenge) verify(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateSubmitting {
		c.mu.Unlock()
		return
	}
	code := string(c.digits)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.verifyTimeout())
	defer cancel()

	var out Outcome
	err := ErrMismatch
	if len(code) == PINLength {
		out, err = c.cfg.Verifier.Verify(ctx, code)
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateSubmitting {
		c.mu.Unlock()
		slog.Debug("ignoring PIN result for a closed challenge", slog.String("purpose", string(c.cfg.Purpose)))
		return
	}

	if err == nil && c.cfg.OnResolve != nil {
		if perr := c.cfg.OnResolve(ctx, out); perr != nil {
			slog.Error("failed to persist PIN outcome",
				slog.String("purpose", string(c.cfg.Purpose)),
				slog.Any("error", perr),
			)
			err = fmt.Errorf("persisting PIN outcome: %w", perr)
		}
	}

	var events []Event
	locked := false
	c.digits = c.digits[:0]
	c.touched = c.cfg.Clock.Now()

	if err == nil {
		c.state = StateResolved
		c.message = messageAccepted
		events = append(events, c.event(EventResolved, nil))
	} else {
		c.attempts++
		kind := EventMismatch
		if !errors.Is(err, ErrMismatch) {
			kind = EventError
			slog.Warn("PIN verification failed",
				slog.String("purpose", string(c.cfg.Purpose)),
				slog.Int("attempts", c.attempts),
				slog.Any("error", err),
			)
		}
		events = append(events, c.event(kind, err))

		if c.attempts >= MaxAttempts {
			c.state = StateLocked
			c.message = messageLocked
			locked = true
			events = append(events, c.event(EventLocked, nil))
		} else {
			c.state = StateCollecting
			c.message = mismatchMessage(MaxAttempts - c.attempts)
		}
	}
	c.mu.Unlock()

	if c.cfg.OnEvent != nil {
		for _, ev := range events {
			c.cfg.OnEvent(ev)
		}
	}

	if locked {
		t := c.cfg.Clock.AfterFunc(c.cfg.Options.LockoutCloseDelay, func() { c.closeGen(gen) })
		c.keepTimer(gen, StateLocked, t)
	}
}

// event builds an Event. Callers hold c.mu.
func (c *Challenge) event(kind EventKind, err error) Event {
	return Event{
		Kind:     kind,
		Purpose:  c.cfg.Purpose,
		Target:   c.cfg.Target,
		Attempts: c.attempts,
		Err:      err,
	}
}
