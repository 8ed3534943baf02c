package pin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kidstube/web/internal/kidsapi"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// ErrMismatch is returned by a Verifier when the digits are wrong. Any other
// error means verification could not be performed.
var ErrMismatch = errors.New("pin: mismatch")

// errNoCachedPIN is returned when the admin PIN could not be fetched at
// login. The keypad still shows a plain mismatch.
var errNoCachedPIN = errors.New("pin: no cached admin PIN")

// Verifier resolves a complete code.
type Verifier interface {
	Verify(ctx context.Context, pin string) (Outcome, error)
}

// ProfileAPI is the backend operation a ProfileVerifier needs.
type ProfileAPI interface {
	VerifyProfilePIN(ctx context.Context, profileID, pin string) (*kidsapi.Profile, error)
}

// ProfileVerifier checks a child profile's PIN with the backend.
type ProfileVerifier struct {
	api      ProfileAPI
	selected kidsapi.Profile
}

// NewProfileVerifier creates a verifier for the profile the operator picked.
// selected should come from the backend's own profile list.
func NewProfileVerifier(api ProfileAPI, selected kidsapi.Profile) *ProfileVerifier {
	return &ProfileVerifier{api: api, selected: selected}
}

// Verify asks the backend. The resulting ActiveChildProfile is built from
// the selected profile and the entered PIN, so nothing from another profile
// can end up in it.
func (v *ProfileVerifier) Verify(ctx context.Context, pin string) (Outcome, error) {
	p, err := v.api.VerifyProfilePIN(ctx, v.selected.ID, pin)
	if err != nil {
		var se *kidsapi.StatusError
		if errors.As(err, &se) && se.Code >= http.StatusBadRequest && se.Code < http.StatusInternalServerError {
			return Outcome{}, ErrMismatch
		}
		return Outcome{}, fmt.Errorf("verifying profile PIN: %w", err)
	}

	if p != nil && p.ID != "" && p.ID != v.selected.ID {
		slog.Warn("backend confirmed a PIN for a different profile",
			slog.String("selected", v.selected.ID),
			slog.String("returned", p.ID),
		)
		return Outcome{}, ErrMismatch
	}

	return Outcome{Profile: &tokenstore.ActiveChildProfile{
		ID:       v.selected.ID,
		FullName: v.selected.FullName,
		Avatar:   v.selected.Avatar,
		PIN:      pin,
	}}, nil
}

// LocalAdminVerifier compares against the admin PIN cached at login. No
// network call is made; the cached value is trusted as-is.
type LocalAdminVerifier struct {
	cached string
}

// NewLocalAdminVerifier creates a verifier for the given cached PIN.
func NewLocalAdminVerifier(cached string) *LocalAdminVerifier {
	return &LocalAdminVerifier{cached: cached}
}

// Verify compares in constant time.
func (v *LocalAdminVerifier) Verify(_ context.Context, pin string) (Outcome, error) {
	if v.cached == "" {
		return Outcome{}, errNoCachedPIN
	}
	if subtle.ConstantTimeCompare([]byte(pin), []byte(v.cached)) != 1 {
		return Outcome{}, ErrMismatch
	}
	return Outcome{}, nil
}
