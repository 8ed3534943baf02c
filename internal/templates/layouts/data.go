// data.go provides typed context helpers for passing layout data from
// handlers/middleware to templ components. Only simple types are stored so
// the layouts package never imports plugin types.
//
// Data flow: Handler/Middleware → Echo Context → LayoutInjector → Go Context → templ
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyIsAuthenticated ctxKey = "layout_is_authenticated"
	keyUserName        ctxKey = "layout_user_name"
	keyProfileName     ctxKey = "layout_profile_name"
	keyDarkMode        ctxKey = "layout_dark_mode"
	keyCSRFToken       ctxKey = "layout_csrf_token"
	keyActivePath      ctxKey = "layout_active_path"
)

// --- Setters (called by the layout injector in app/routes.go) ---

// SetIsAuthenticated marks whether the current request carries a token.
func SetIsAuthenticated(ctx context.Context, authed bool) context.Context {
	return context.WithValue(ctx, keyIsAuthenticated, authed)
}

// SetUserName stores the administrator's display name.
func SetUserName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyUserName, name)
}

// SetProfileName stores the name of the entered child profile.
func SetProfileName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyProfileName, name)
}

// SetDarkMode stores the dark-mode preference.
func SetDarkMode(ctx context.Context, on bool) context.Context {
	return context.WithValue(ctx, keyDarkMode, on)
}

// SetCSRFToken stores the CSRF token for forms.
func SetCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, token)
}

// SetActivePath stores the current request path for nav highlighting.
func SetActivePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, keyActivePath, path)
}

// --- Getters (called by templ components) ---

// IsAuthenticated returns true if the current request carries a token.
func IsAuthenticated(ctx context.Context) bool {
	authed, _ := ctx.Value(keyIsAuthenticated).(bool)
	return authed
}

// GetUserName returns the administrator's display name, or "".
func GetUserName(ctx context.Context) string {
	name, _ := ctx.Value(keyUserName).(string)
	return name
}

// GetProfileName returns the entered child profile's name, or "".
func GetProfileName(ctx context.Context) string {
	name, _ := ctx.Value(keyProfileName).(string)
	return name
}

// IsDarkMode returns the dark-mode preference.
func IsDarkMode(ctx context.Context) bool {
	on, _ := ctx.Value(keyDarkMode).(bool)
	return on
}

// GetCSRFToken returns the CSRF token for forms, or "".
func GetCSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(keyCSRFToken).(string)
	return token
}

// GetActivePath returns the current request path, or "".
func GetActivePath(ctx context.Context) string {
	path, _ := ctx.Value(keyActivePath).(string)
	return path
}
