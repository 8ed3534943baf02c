package pin

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidstube/web/internal/kidsapi"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// --- Mock Profile API ---

type mockProfileAPI struct {
	verifyFn func(ctx context.Context, profileID, pin string) (*kidsapi.Profile, error)
}

func (m *mockProfileAPI) VerifyProfilePIN(ctx context.Context, profileID, pin string) (*kidsapi.Profile, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, profileID, pin)
	}
	return nil, &kidsapi.StatusError{Code: http.StatusUnauthorized}
}

var mia = kidsapi.Profile{ID: "abc123", FullName: "Mia", Avatar: "https://img.example.com/mia.png"}

func TestProfileVerifier_BuildsFromSelectedProfile(t *testing.T) {
	api := &mockProfileAPI{verifyFn: func(_ context.Context, id, pin string) (*kidsapi.Profile, error) {
		assert.Equal(t, "abc123", id)
		assert.Equal(t, "445566", pin)
		// The backend body may carry more than we need.
		return &kidsapi.Profile{ID: "abc123", FullName: "Mia (server)", Avatar: "https://other/x.png", PIN: "hash"}, nil
	}}

	out, err := NewProfileVerifier(api, mia).Verify(context.Background(), "445566")
	require.NoError(t, err)
	require.NotNil(t, out.Profile)
	assert.Equal(t, tokenstore.ActiveChildProfile{
		ID:       "abc123",
		FullName: "Mia",
		Avatar:   "https://img.example.com/mia.png",
		PIN:      "445566",
	}, *out.Profile)
}

func TestProfileVerifier_OtherProfileRejected(t *testing.T) {
	api := &mockProfileAPI{verifyFn: func(context.Context, string, string) (*kidsapi.Profile, error) {
		return &kidsapi.Profile{ID: "zzz999", FullName: "Leo"}, nil
	}}

	_, err := NewProfileVerifier(api, mia).Verify(context.Background(), "445566")
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestProfileVerifier_ClientErrorsAreMismatches(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
		api := &mockProfileAPI{verifyFn: func(context.Context, string, string) (*kidsapi.Profile, error) {
			return nil, &kidsapi.StatusError{Code: code}
		}}
		_, err := NewProfileVerifier(api, mia).Verify(context.Background(), "000000")
		assert.ErrorIs(t, err, ErrMismatch, "status %d", code)
	}
}

func TestProfileVerifier_ServerAndNetworkErrorsAreErrors(t *testing.T) {
	for _, failure := range []error{
		&kidsapi.StatusError{Code: http.StatusBadGateway},
		errors.New("dial tcp: connection refused"),
	} {
		api := &mockProfileAPI{verifyFn: func(context.Context, string, string) (*kidsapi.Profile, error) {
			return nil, failure
		}}
		_, err := NewProfileVerifier(api, mia).Verify(context.Background(), "000000")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMismatch)
	}
}

func TestLocalAdminVerifier(t *testing.T) {
	v := NewLocalAdminVerifier("998877")

	_, err := v.Verify(context.Background(), "998877")
	assert.NoError(t, err)

	_, err = v.Verify(context.Background(), "112233")
	assert.ErrorIs(t, err, ErrMismatch)

	_, err = NewLocalAdminVerifier("").Verify(context.Background(), "998877")
	assert.ErrorIs(t, err, errNoCachedPIN)
}
