// Package pin implements the six-digit PIN challenge that guards entry into
// a child profile and re-entry into the admin area.
//
// A Challenge collects digits one at a time, submits automatically a short
// moment after the sixth, and locks itself after three failures. Wrong
// digits, partial codes, and backend failures all look the same to the
// person at the keypad.
package pin

import (
	"fmt"

	"github.com/kidstube/web/internal/plugins/tokenstore"
)

const (
	// PINLength is the number of digits in every PIN.
	PINLength = 6

	// MaxAttempts is how many failures lock a challenge.
	MaxAttempts = 3
)

// Purpose selects how a challenge is resolved.
type Purpose string

const (
	PurposeProfile Purpose = "profile"
	PurposeAdmin   Purpose = "admin"
)

// State is where a challenge is in its life.
type State int

const (
	// StateIdle is a closed challenge. Nothing it holds means anything.
	StateIdle State = iota
	StateCollecting
	// StateSubmitting ignores every input until the verification returns.
	StateSubmitting
	StateLocked
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateSubmitting:
		return "submitting"
	case StateLocked:
		return "locked"
	case StateResolved:
		return "resolved"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	messageLocked   = "Too many attempts. Please try again later."
	messageAccepted = "PIN accepted."
)

// mismatchMessage is the one message shown for every kind of failure.
func mismatchMessage(remaining int) string {
	if remaining == 1 {
		return "Incorrect PIN. 1 attempt remaining."
	}
	return fmt.Sprintf("Incorrect PIN. %d attempts remaining.", remaining)
}

// Target is what the challenge unlocks, for display.
type Target struct {
	ProfileID string
	Name      string
	Avatar    string
}

// Outcome is what a successful verification yields.
type Outcome struct {
	// Profile is set for profile-purpose challenges.
	Profile *tokenstore.ActiveChildProfile
}

// EventKind classifies what a Challenge reports to its observer.
type EventKind int

const (
	EventResolved EventKind = iota
	EventMismatch
	EventError
	EventLocked
)

// Event is one observable outcome of a verification.
type Event struct {
	Kind     EventKind
	Purpose  Purpose
	Target   Target
	Attempts int
	Err      error
}

// Snapshot is a consistent copy of a challenge for rendering.
type Snapshot struct {
	State       State
	Purpose     Purpose
	Target      Target
	Destination string
	Digits      int
	Attempts    int
	Message     string
}

// Remaining is how many attempts are left.
func (s Snapshot) Remaining() int { return MaxAttempts - s.Attempts }

// Open reports whether the keypad should be on screen.
func (s Snapshot) Open() bool { return s.State != StateIdle }

// AcceptsInput reports whether keypad presses do anything.
func (s Snapshot) AcceptsInput() bool { return s.State == StateCollecting }
