// Package tokenstore is the single source of truth for a browser's
// persisted identity and session state: the administrator's Session, the
// short-lived admin-PIN grant, the active child profile, the dark-mode
// preference, and the post-login return URL.
//
// State is keyed by an opaque browser-session id (the kidstube_sid cookie)
// and held in Redis. Two records with distinct lifetimes are kept per
// browser: a long-lived one (Session, active profile, preferences) and a
// tab-scoped one holding only the admin-PIN grant.
package tokenstore

import "time"

// Key names one stored value.
type Key string

const (
	KeyToken         Key = "token"
	KeyAdminID       Key = "adminId"
	KeyUserName      Key = "userName"
	KeyAdminPIN      Key = "adminPin"
	KeyProfilePIN    Key = "profilePin"
	KeyActiveProfile Key = "activeProfile"
	KeyDarkMode      Key = "darkMode"
	KeyReturnTo      Key = "returnTo"

	// Tab-scoped keys. These live in the short-lived record.
	KeyAdminPinVerified   Key = "adminPinVerified"
	KeyAdminPinVerifiedAt Key = "adminPinVerifiedAt"
)

// sessionKeys are written and removed together by Save.
var sessionKeys = []Key{KeyToken, KeyAdminID, KeyUserName, KeyAdminPIN}

// logoutKeys is everything except the dark-mode preference.
var logoutKeys = []Key{
	KeyToken, KeyAdminID, KeyUserName, KeyAdminPIN,
	KeyProfilePIN, KeyActiveProfile, KeyReturnTo,
	KeyAdminPinVerified, KeyAdminPinVerifiedAt,
}

// tabScoped reports whether k lives in the short-lived record.
func tabScoped(k Key) bool {
	return k == KeyAdminPinVerified || k == KeyAdminPinVerifiedAt
}

// AdminPinGrantWindow is how long an admin-PIN re-entry unlocks admin-only
// pages. Fixed; never extended by access.
const AdminPinGrantWindow = 30 * time.Minute

// Session is the administrator's authenticated state. A Session without a
// Token is unauthenticated and its other fields mean nothing.
type Session struct {
	Token       string
	AdminID     string
	DisplayName string

	// AdminPIN is the account PIN cached at login for the local admin
	// re-verification check. Empty when it could not be fetched.
	AdminPIN string
}

// AdminPinVerification records that the operator re-entered the admin PIN.
type AdminPinVerification struct {
	VerifiedAt time.Time
}

// Fresh reports whether the grant is still inside its window at now. A
// grant exactly AdminPinGrantWindow old is stale.
func (v AdminPinVerification) Fresh(now time.Time) bool {
	if v.VerifiedAt.IsZero() {
		return false
	}
	return now.Sub(v.VerifiedAt) < AdminPinGrantWindow
}

// ActiveChildProfile is the restricted profile currently entered, with the
// PIN that unlocked it. The PIN is kept to authorize the child view's
// content requests.
type ActiveChildProfile struct {
	ID       string `json:"_id"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
	PIN      string `json:"pin"`
}
