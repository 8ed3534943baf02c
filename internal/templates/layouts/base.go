package layouts

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Page describes one full HTML page.
type Page struct {
	Title string

	// Refresh, when set, forwards the browser after the given number of
	// seconds (a meta refresh, so it works without JavaScript).
	Refresh *Refresh

	Body templ.Component
}

// Refresh is a delayed navigation.
type Refresh struct {
	Seconds int
	URL     string
}

// Base renders the document shell around p.Body: head, dark-mode class,
// the top bar, and the htmx script.
func Base(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		class := "light"
		if IsDarkMode(ctx) {
			class = "dark"
		}

		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en" class="%s"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<meta name="csrf-token" content="%s">`,
			class, templ.EscapeString(GetCSRFToken(ctx))); err != nil {
			return err
		}
		if p.Refresh != nil {
			if _, err := fmt.Fprintf(w, `<meta http-equiv="refresh" content="%d;url=%s">`,
				p.Refresh.Seconds, templ.EscapeString(p.Refresh.URL)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `<title>%s · KidsTube</title>`+
			`<link rel="stylesheet" href="/static/css/app.css">`+
			`<script src="/static/js/htmx.min.js" defer></script>`+
			`</head><body hx-headers='{"X-CSRF-Token": "%s"}'>`,
			templ.EscapeString(p.Title), templ.EscapeString(GetCSRFToken(ctx))); err != nil {
			return err
		}

		if err := topBar(ctx, w); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<main id="main">`); err != nil {
			return err
		}
		if p.Body != nil {
			if err := p.Body.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func topBar(ctx context.Context, w io.Writer) error {
	csrf := templ.EscapeString(GetCSRFToken(ctx))

	if _, err := io.WriteString(w, `<header class="topbar"><a class="brand" href="/">KidsTube</a><nav>`); err != nil {
		return err
	}
	if name := GetProfileName(ctx); name != "" {
		if _, err := fmt.Fprintf(w, `<span class="profile">%s</span>`+
			`<form method="post" action="/profiles/exit"><input type="hidden" name="csrf_token" value="%s">`+
			`<button type="submit">Switch profile</button></form>`,
			templ.EscapeString(name), csrf); err != nil {
			return err
		}
	}
	if IsAuthenticated(ctx) {
		if _, err := fmt.Fprintf(w, `<span class="user">%s</span>`+
			`<form method="post" action="/logout"><input type="hidden" name="csrf_token" value="%s">`+
			`<button type="submit">Log out</button></form>`,
			templ.EscapeString(GetUserName(ctx)), csrf); err != nil {
			return err
		}
	} else if _, err := io.WriteString(w, `<a href="/login">Log in</a><a href="/register">Register</a>`); err != nil {
		return err
	}

	label := "Dark mode"
	if IsDarkMode(ctx) {
		label = "Light mode"
	}
	_, err := fmt.Fprintf(w, `<form method="post" action="/preferences/dark-mode"><input type="hidden" name="csrf_token" value="%s">`+
		`<button type="submit">%s</button></form></nav></header>`, csrf, label)
	return err
}
