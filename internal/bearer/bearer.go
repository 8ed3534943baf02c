// Package bearer reads the claims carried by a KidsTube bearer token.
//
// The front-end never verifies the token's signature (it does not hold the
// backend's key); the backend does that on every request. The claims are
// read only to recover the administrator's identity and the expiry the
// session gate enforces.
package bearer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned for tokens that cannot be decoded or that carry
// no administrator id.
var ErrMalformed = errors.New("bearer: malformed token")

// Claims are the fields the front-end reads from a token payload.
type Claims struct {
	ID    string
	Name  string
	Email string

	// ExpiresAt is nil when the token carries no exp claim; such tokens
	// never expire from the front-end's point of view.
	ExpiresAt *time.Time
}

// Expired reports whether the token's expiry is at or before now.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// DisplayName returns the name to greet the administrator with.
func (c Claims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Email
}

// Decode parses the payload of a compact three-part token.
func Decode(raw string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, mc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	id := stringClaim(mc, "id")
	if id == "" {
		return Claims{}, fmt.Errorf("%w: missing id claim", ErrMalformed)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c := Claims{
		ID:    id,
		Name:  stringClaim(mc, "name"),
		Email: stringClaim(mc, "email"),
	}
	if exp != nil {
		t := exp.Time
		c.ExpiresAt = &t
	}
	return c, nil
}

// stringClaim reads a claim as a string. Numeric ids are formatted rather
// than rejected.
func stringClaim(mc jwt.MapClaims, key string) string {
	switch v := mc[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
