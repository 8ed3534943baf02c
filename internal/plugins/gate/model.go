// Package gate is the session gate: it runs before every page handler and
// decides whether the page may render. Checks run in a fixed order and the
// first failure wins. A denied request never reaches its handler; the
// browser is sent to a notice page that names the reason and then forwards
// to login or to profile selection.
package gate

import (
	"net/url"
	"strings"

	"github.com/kidstube/web/internal/bearer"
)

// Reason is why the gate turned a request away.
type Reason string

const (
	ReasonLoginRequired    Reason = "login_required"
	ReasonInvalidToken     Reason = "invalid_token"
	ReasonTokenExpired     Reason = "token_expired"
	ReasonAdminPinRequired Reason = "admin_pin_required"
)

// AdminVerifyURL is profile selection with the admin challenge requested.
const AdminVerifyURL = "/profiles?verify=admin"

// ParseReason maps a query value back to a Reason.
func ParseReason(s string) (Reason, bool) {
	switch r := Reason(s); r {
	case ReasonLoginRequired, ReasonInvalidToken, ReasonTokenExpired, ReasonAdminPinRequired:
		return r, true
	}
	return "", false
}

// Message is the human-readable text shown before the redirect.
func (r Reason) Message() string {
	switch r {
	case ReasonLoginRequired:
		return "Please log in to continue."
	case ReasonInvalidToken:
		return "Your session is no longer valid. Please log in again."
	case ReasonTokenExpired:
		return "Your session has expired. Please log in again."
	case ReasonAdminPinRequired:
		return "Enter the admin PIN to open this page."
	}
	return ""
}

// Destination is where the browser goes after the notice.
func (r Reason) Destination() string {
	if r == ReasonAdminPinRequired {
		return AdminVerifyURL
	}
	return "/login"
}

// NoticeURL is the interstitial that shows r and then forwards.
func NoticeURL(r Reason) string {
	return "/notice?reason=" + url.QueryEscape(string(r))
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Allowed bool
	Reason  Reason

	// Claims are the decoded token claims, when the token got that far.
	Claims *bearer.Claims
}

func allow(claims *bearer.Claims) Decision {
	return Decision{Allowed: true, Claims: claims}
}

func deny(r Reason, claims *bearer.Claims) Decision {
	return Decision{Reason: r, Claims: claims}
}

// Policy holds the two allow-lists. Entries ending in "/" match every path
// under them; other entries (including "/") match exactly.
type Policy struct {
	Public    []string
	AdminOnly []string
}

// DefaultPolicy is the page classification of the site.
func DefaultPolicy() Policy {
	return Policy{
		Public: []string{
			"/",
			"/login",
			"/register",
			"/logout",
			"/notice",
			"/healthz",
			"/static/",
			"/preferences/",
		},
		AdminOnly: []string{
			"/admin",
			"/admin/",
		},
	}
}

// IsPublic reports whether path skips every check.
func (p Policy) IsPublic(path string) bool { return matchAny(p.Public, path) }

// IsAdminOnly reports whether path needs a fresh admin-PIN grant.
func (p Policy) IsAdminOnly(path string) bool { return matchAny(p.AdminOnly, path) }

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if len(p) > 1 && strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}
