// Package audit records who tried to get past the parental controls: every
// gate denial and every PIN challenge outcome becomes an Entry in the
// access_audit table. The admin dashboard reads the recent entries back.
//
// Recording is fire-and-forget. An audit failure is logged and never blocks
// the request that produced it. The whole plugin is optional; with
// AUDIT_ENABLED=false a Discard recorder stands in.
package audit

import (
	"context"
	"time"
)

// Action names what happened. Each follows "resource.verb".
type Action string

const (
	// ActionGateDenied is logged when the session gate turns a page load away.
	ActionGateDenied Action = "gate.denied"

	// ActionPinResolved is logged when a PIN challenge succeeds.
	ActionPinResolved Action = "pin.resolved"

	// ActionPinMismatch is logged for each wrong (or partial) PIN.
	ActionPinMismatch Action = "pin.mismatch"

	// ActionPinError is logged when verification failed for a reason other
	// than wrong digits. The user saw a mismatch.
	ActionPinError Action = "pin.error"

	// ActionPinLocked is logged when a challenge runs out of attempts.
	ActionPinLocked Action = "pin.locked"
)

// AllActions lists every action the plugin writes. The access_audit.action
// ENUM must contain exactly these.
var AllActions = []Action{
	ActionGateDenied,
	ActionPinResolved,
	ActionPinMismatch,
	ActionPinError,
	ActionPinLocked,
}

// Valid reports whether a is one of AllActions.
func (a Action) Valid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

// Entry is one row of the access audit log. Fields that do not apply to an
// action are left empty.
type Entry struct {
	ID        int64
	AdminID   string
	Action    Action
	Purpose   string // "profile" or "admin" for pin.* actions
	ProfileID string
	Reason    string // gate failure reason for gate.denied
	Path      string
	RemoteIP  string
	Attempts  int
	CreatedAt time.Time
}

// Recorder accepts audit entries. Implementations must not block the caller
// on storage.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Discard is the Recorder used when auditing is disabled.
type Discard struct{}

// Record drops the entry.
func (Discard) Record(context.Context, Entry) {}
