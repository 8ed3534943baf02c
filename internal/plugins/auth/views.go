package auth

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/kidstube/web/internal/templates/layouts"
)

func errorBanner(b *strings.Builder, msg string) {
	if msg != "" {
		fmt.Fprintf(b, `<p class="form-error" role="alert">%s</p>`, templ.EscapeString(msg))
	}
}

func field(b *strings.Builder, label, name, kind, value, extra string) {
	fmt.Fprintf(b, `<label>%s<input type="%s" name="%s" value="%s"%s></label>`,
		label, kind, name, templ.EscapeString(value), extra)
}

// loginForm is the swappable form; failed HTMX submissions replace it.
func loginForm(req LoginRequest, errMsg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<form id="login-form" class="auth-form" method="post" action="/login" hx-post="/login" hx-target="this" hx-swap="outerHTML">`)
		fmt.Fprintf(&b, `<input type="hidden" name="csrf_token" value="%s">`, templ.EscapeString(layouts.GetCSRFToken(ctx)))
		errorBanner(&b, errMsg)
		field(&b, "Email", "username", "email", req.Username, ` autocomplete="username" required autofocus`)
		field(&b, "Password", "password", "password", "", ` autocomplete="current-password" required`)
		b.WriteString(`<button type="submit">Log in</button>`)
		b.WriteString(`<p class="alt">No account yet? <a href="/register">Register</a></p></form>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func loginPage(req LoginRequest, errMsg string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="auth"><h1>Log in</h1>`); err != nil {
			return err
		}
		if err := loginForm(req, errMsg).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</section>`)
		return err
	})
	return layouts.Base(layouts.Page{Title: "Log in", Body: body})
}

func registerForm(req RegisterRequest, errMsg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<form id="register-form" class="auth-form" method="post" action="/register" hx-post="/register" hx-target="this" hx-swap="outerHTML">`)
		fmt.Fprintf(&b, `<input type="hidden" name="csrf_token" value="%s">`, templ.EscapeString(layouts.GetCSRFToken(ctx)))
		errorBanner(&b, errMsg)
		field(&b, "Email", "email", "email", req.Email, ` autocomplete="email" required`)
		field(&b, "Name", "name", "text", req.Name, ` autocomplete="given-name" required`)
		field(&b, "Last name", "lastname", "text", req.LastName, ` autocomplete="family-name" required`)
		field(&b, "Phone", "phone", "tel", req.Phone, ` autocomplete="tel"`)
		field(&b, "Country", "country", "text", req.Country, ` autocomplete="country-name"`)
		field(&b, "Birth date", "birthdate", "date", req.BirthDate, ` required`)
		field(&b, "Password", "password", "password", "", ` autocomplete="new-password" minlength="8" maxlength="128" required`)
		field(&b, "Confirm password", "confirm", "password", "", ` autocomplete="new-password" required`)
		field(&b, "Admin PIN (6 digits)", "pin", "password", "", ` inputmode="numeric" pattern="[0-9]{6}" maxlength="6" required`)
		b.WriteString(`<button type="submit">Create account</button>`)
		b.WriteString(`<p class="alt">Already registered? <a href="/login">Log in</a></p></form>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func registerPage(req RegisterRequest, errMsg string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="auth"><h1>Create an administrator account</h1>`); err != nil {
			return err
		}
		if err := registerForm(req, errMsg).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</section>`)
		return err
	})
	return layouts.Base(layouts.Page{Title: "Register", Body: body})
}
