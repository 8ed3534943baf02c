// Package auth is the administrator's way in and out: login against the
// KidsTube backend, registration of a new administrator account, and
// logout. A successful login decodes the returned token, caches the
// account's admin PIN for the local re-verification keypad, and saves the
// Session in the token store.
package auth

import (
	"context"

	"github.com/kidstube/web/internal/kidsapi"
)

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// RegisterRequest holds the data submitted by the registration form.
type RegisterRequest struct {
	Email     string `form:"email"`
	Password  string `form:"password"`
	Confirm   string `form:"confirm"`
	Name      string `form:"name"`
	LastName  string `form:"lastname"`
	Phone     string `form:"phone"`
	PIN       string `form:"pin"`
	Country   string `form:"country"`
	BirthDate string `form:"birthdate"`
}

// registration converts a validated request into the backend's body.
func (r *RegisterRequest) registration() kidsapi.Registration {
	return kidsapi.Registration{
		Email:     r.Email,
		Password:  r.Password,
		Phone:     r.Phone,
		PIN:       r.PIN,
		Name:      r.Name,
		LastName:  r.LastName,
		Country:   r.Country,
		BirthDate: r.BirthDate,
	}
}

// --- Service Input DTOs (passed from handler to service) ---

// LoginInput is the input for authenticating an administrator.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult is a successful login: the browser-session id that now
// holds the Session, and where to send the browser.
type LoginResult struct {
	SessionID string
	Next      string
}

// Backend is the subset of the KidsTube API the auth flow calls.
type Backend interface {
	CreateSession(ctx context.Context, username, password string) (string, error)
	DeleteSession(ctx context.Context, token string) error
	Register(ctx context.Context, r kidsapi.Registration) error
	GetUser(ctx context.Context, token, id string) (*kidsapi.User, error)
}
