package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeMessage_HidesCause(t *testing.T) {
	err := NewBadGateway(errors.New("dial tcp 10.0.0.3:3000: connection refused"))

	assert.Equal(t, "The KidsTube service is not responding. Please try again.", SafeMessage(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "an unexpected error occurred", SafeMessage(errors.New("raw")))
}

func TestIsCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("listing profiles: %w", NewUnauthorized("session expired"))

	assert.True(t, IsCode(err, http.StatusUnauthorized))
	assert.False(t, IsCode(err, http.StatusForbidden))
	assert.Equal(t, "session expired", SafeMessage(err))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("redis down")
	assert.ErrorIs(t, NewInternal(cause), cause)
	assert.ErrorIs(t, NewMissingContext(), errMissingContext)
}

func TestIsSessionRejected(t *testing.T) {
	err := fmt.Errorf("listing profiles: %w", NewSessionRejected("session no longer valid"))

	assert.True(t, IsSessionRejected(err))
	assert.True(t, IsCode(err, http.StatusUnauthorized))
	assert.False(t, IsSessionRejected(NewUnauthorized("please log in first")))
}
