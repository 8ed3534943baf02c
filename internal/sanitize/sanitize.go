// Package sanitize cleans backend-supplied strings before they are shown.
// Profile names and avatar URLs come from the KidsTube API, which accepts
// whatever an administrator typed; the front-end strips markup from names
// and only renders http(s) avatars.
package sanitize

import (
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict     *bluemonday.Policy
	strictOnce sync.Once
)

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// Text removes every HTML element from s and trims surrounding space. The
// result is plain text: entities bluemonday emits are decoded again so
// templ's own escaping does not double-encode them.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy().Sanitize(s)))
}

// AvatarURL returns raw if it is an absolute http(s) URL, otherwise "".
// Callers fall back to a placeholder for "".
func AvatarURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return ""
	}
	return u.String()
}
