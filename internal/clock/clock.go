// Package clock abstracts the time operations the front-end depends on so
// the PIN submit delay, the lockout auto-close, and the 30-minute admin-PIN
// window can be driven deterministically in tests.
//
// Production code receives Real(). Tests receive Fake(start) and move time
// forward with Advance.
package clock

import "time"

// Clock is the subset of the time package used by the application.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once d has elapsed and returns a Timer that can
	// cancel the call. A non-positive d calls f immediately.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop cancels the call. It returns false if f already ran or the
	// timer was already stopped.
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
