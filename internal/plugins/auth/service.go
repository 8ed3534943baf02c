package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/bearer"
	"github.com/kidstube/web/internal/clock"
	"github.com/kidstube/web/internal/kidsapi"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// defaultLanding is where a login goes without a recorded return URL.
const defaultLanding = "/profiles"

// AuthService handles administrator login, registration, and logout.
type AuthService interface {
	// Login authenticates and saves the Session under a fresh
	// browser-session id. sid is retired.
	Login(ctx context.Context, sid string, input LoginInput) (LoginResult, error)

	// Register validates the form, creates the account, and logs in.
	Register(ctx context.Context, sid string, req RegisterRequest) (LoginResult, error)

	// Logout invalidates the token with the backend (best effort) and
	// clears everything stored except the dark-mode preference.
	Logout(ctx context.Context, sid string) error
}

// authService implements AuthService.
type authService struct {
	backend Backend
	store   tokenstore.Store
	clock   clock.Clock
}

// NewAuthService creates a new auth service.
func NewAuthService(backend Backend, store tokenstore.Store, clk clock.Clock) AuthService {
	return &authService{backend: backend, store: store, clock: clk}
}

func (s *authService) Login(ctx context.Context, sid string, input LoginInput) (LoginResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" || input.Password == "" {
		return LoginResult{}, apperror.NewValidation("username and password are required")
	}

	token, err := s.backend.CreateSession(ctx, input.Username, input.Password)
	if err != nil {
		if isRejection(err) {
			return LoginResult{}, apperror.NewUnauthorized("invalid username or password")
		}
		return LoginResult{}, apperror.NewBadGateway(fmt.Errorf("creating session: %w", err))
	}

	claims, err := bearer.Decode(token)
	if err != nil {
		return LoginResult{}, apperror.NewBadGateway(fmt.Errorf("backend issued an unreadable token: %w", err))
	}

	// The cached PIN only powers the admin keypad. Without it the keypad
	// rejects every code, which is preferable to refusing the login.
	var adminPIN, name string
	user, err := s.backend.GetUser(ctx, token, claims.ID)
	if err != nil {
		slog.Warn("could not cache admin PIN at login",
			slog.String("admin_id", claims.ID),
			slog.Any("error", err),
		)
	} else {
		adminPIN = user.PIN
		name = strings.TrimSpace(user.Name + " " + user.LastName)
	}
	if claims.Name != "" || name == "" {
		name = claims.DisplayName()
	}

	returnTo, _ := s.store.Read(ctx, sid, tokenstore.KeyReturnTo)

	// The pre-login id is retired along with anything a previous login left
	// on it; only dark mode moves to the new id.
	next, err := s.store.Rotate(ctx, sid)
	if err != nil {
		return LoginResult{}, apperror.NewInternal(fmt.Errorf("rotating browser session: %w", err))
	}
	err = s.store.Save(ctx, next, tokenstore.Session{
		Token:       token,
		AdminID:     claims.ID,
		DisplayName: name,
		AdminPIN:    adminPIN,
	})
	if err != nil {
		return LoginResult{}, apperror.NewInternal(fmt.Errorf("saving session: %w", err))
	}

	slog.Info("administrator logged in", slog.String("admin_id", claims.ID))
	return LoginResult{SessionID: next, Next: safeReturn(returnTo)}, nil
}

func (s *authService) Register(ctx context.Context, sid string, req RegisterRequest) (LoginResult, error) {
	req.normalize()
	if msg := validateRegisterRequest(&req, s.clock.Now()); msg != "" {
		return LoginResult{}, apperror.NewValidation(msg)
	}

	if err := s.backend.Register(ctx, req.registration()); err != nil {
		var se *kidsapi.StatusError
		switch {
		case kidsapi.IsStatus(err, http.StatusConflict):
			return LoginResult{}, apperror.NewConflict("an account with that email already exists")
		case errors.As(err, &se) && se.Code < http.StatusInternalServerError:
			return LoginResult{}, apperror.NewValidation("the registration was not accepted; please check the form")
		default:
			return LoginResult{}, apperror.NewBadGateway(fmt.Errorf("registering administrator: %w", err))
		}
	}

	return s.Login(ctx, sid, LoginInput{Username: req.Email, Password: req.Password})
}

func (s *authService) Logout(ctx context.Context, sid string) error {
	if token, ok := s.store.Read(ctx, sid, tokenstore.KeyToken); ok {
		if err := s.backend.DeleteSession(ctx, token); err != nil {
			slog.Warn("backend session invalidation failed", slog.Any("error", err))
		}
	}

	if err := s.store.Logout(ctx, sid); err != nil {
		return apperror.NewInternal(fmt.Errorf("clearing session: %w", err))
	}
	return nil
}

// isRejection reports whether the backend refused the credentials, as
// opposed to failing.
func isRejection(err error) bool {
	var se *kidsapi.StatusError
	return errors.As(err, &se) && se.Code >= http.StatusBadRequest && se.Code < http.StatusInternalServerError
}

// safeReturn only allows local paths, and never back to the auth pages.
func safeReturn(v string) string {
	if v == "" || !strings.HasPrefix(v, "/") || strings.HasPrefix(v, "//") || strings.HasPrefix(v, "/\\") {
		return defaultLanding
	}
	for _, p := range []string{"/login", "/register", "/logout", "/notice"} {
		if v == p || strings.HasPrefix(v, p+"?") {
			return defaultLanding
		}
	}
	return v
}
