package profiles

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/kidstube/web/internal/kidsapi"
	"github.com/kidstube/web/internal/plugins/tokenstore"
	"github.com/kidstube/web/internal/templates/layouts"
)

func avatar(url string) string {
	if url == "" {
		return `<span class="avatar placeholder" aria-hidden="true"></span>`
	}
	return fmt.Sprintf(`<img class="avatar" src="%s" alt="">`, templ.EscapeString(url))
}

func selectPage(profiles []kidsapi.Profile, modal templ.Component, refresh *layouts.Refresh) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		csrf := templ.EscapeString(layouts.GetCSRFToken(ctx))

		var b strings.Builder
		b.WriteString(`<section class="profiles"><h1>Who's watching?</h1><ul class="profile-grid">`)
		for _, p := range profiles {
			action := templ.EscapeString("/profiles/" + url.PathEscape(p.ID) + "/pin")
			fmt.Fprintf(&b, `<li><form method="post" action="%s" hx-post="%s" hx-target="#pin-modal" hx-swap="outerHTML">`+
				`<input type="hidden" name="csrf_token" value="%s"><button type="submit" class="profile">%s<span>%s</span></button></form></li>`,
				action, action, csrf, avatar(p.Avatar), templ.EscapeString(p.FullName))
		}
		fmt.Fprintf(&b, `<li><form method="post" action="/profiles/admin/pin" hx-post="/profiles/admin/pin" hx-target="#pin-modal" hx-swap="outerHTML">`+
			`<input type="hidden" name="csrf_token" value="%s"><button type="submit" class="profile admin">`+
			`<span class="avatar admin-icon" aria-hidden="true"></span><span>Admin</span></button></form></li>`, csrf)
		b.WriteString(`</ul>`)
		if len(profiles) == 0 {
			b.WriteString(`<p class="empty">No child profiles yet. Use the admin area to add one.</p>`)
		}
		b.WriteString(`</section>`)

		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		return modal.Render(ctx, w)
	})

	return layouts.Base(layouts.Page{Title: "Profiles", Refresh: refresh, Body: body})
}

func kidsPage(p tokenstore.ActiveChildProfile) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="kids">%s<h1>Hi, %s!</h1><p>Your videos and playlists will show up here.</p></section>`,
			avatar(p.Avatar), templ.EscapeString(p.FullName))
		return err
	})
	return layouts.Base(layouts.Page{Title: p.FullName, Body: body})
}
