// Package pages holds the few pages that belong to no plugin: the landing
// page and the error page.
package pages

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/kidstube/web/internal/templates/layouts"
)

// Landing is the public home page (GET /). Signed-in visitors are pointed
// at profile selection instead of the login form.
func Landing() templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		cta := `<a class="button" href="/login">Log in</a> <a class="button secondary" href="/register">Create an account</a>`
		if layouts.IsAuthenticated(ctx) {
			cta = `<a class="button" href="/profiles">Choose a profile</a>`
		}
		_, err := fmt.Fprintf(w, `<section class="landing"><h1>KidsTube</h1>`+
			`<p>Videos picked by you, for the kids you pick them for.</p><p>%s</p></section>`, cta)
		return err
	})
	return layouts.Base(layouts.Page{Title: "KidsTube", Body: body})
}

// ErrorPage renders a status code and a message that is safe to show.
func ErrorPage(code int, message string) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="error-page"><h1>%d %s</h1><p>%s</p><p><a href="/">Back to start</a></p></section>`,
			code, templ.EscapeString(http.StatusText(code)), templ.EscapeString(message))
		return err
	})
	return layouts.Base(layouts.Page{Title: http.StatusText(code), Body: body})
}
