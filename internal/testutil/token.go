package testutil

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// Token signs claims the way the backend does. The signing key is
// irrelevant to the front-end, which never verifies it.
func Token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-key"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}
