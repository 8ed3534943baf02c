package admin

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/kidstube/web/internal/plugins/audit"
	"github.com/kidstube/web/internal/templates/layouts"
)

var actionLabels = map[audit.Action]string{
	audit.ActionGateDenied:  "Blocked page",
	audit.ActionPinResolved: "PIN accepted",
	audit.ActionPinMismatch: "Wrong PIN",
	audit.ActionPinError:    "PIN check failed",
	audit.ActionPinLocked:   "Keypad locked",
}

func describe(e audit.Entry) string {
	switch e.Action {
	case audit.ActionGateDenied:
		return e.Path + " (" + e.Reason + ")"
	case audit.ActionPinMismatch, audit.ActionPinLocked:
		return fmt.Sprintf("%s PIN, attempt %d", e.Purpose, e.Attempts)
	default:
		if e.ProfileID != "" {
			return e.Purpose + " PIN for profile " + e.ProfileID
		}
		return e.Purpose + " PIN"
	}
}

func dashboardPage(d DashboardData, now time.Time) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<section class="admin"><h1>Welcome, %s</h1>`, templ.EscapeString(d.AdminName))

		if !d.GrantExpires.IsZero() {
			left := d.GrantExpires.Sub(now).Round(time.Minute)
			if left < time.Minute {
				left = time.Minute
			}
			fmt.Fprintf(&b, `<p class="grant">Admin access stays unlocked for about %s.</p>`, templ.EscapeString(left.String()))
		}
		fmt.Fprintf(&b, `<form method="post" action="/admin/lock"><input type="hidden" name="csrf_token" value="%s">`+
			`<button type="submit">Lock admin area</button></form>`, templ.EscapeString(layouts.GetCSRFToken(ctx)))

		fmt.Fprintf(&b, `<h2>Child profiles (%d)</h2><ul class="profile-list">`, len(d.Profiles))
		for _, p := range d.Profiles {
			fmt.Fprintf(&b, `<li>%s</li>`, templ.EscapeString(p.FullName))
		}
		b.WriteString(`</ul>`)

		b.WriteString(`<h2>Recent activity</h2>`)
		switch {
		case d.AuditError:
			b.WriteString(`<p class="empty">Activity could not be loaded right now.</p>`)
		case len(d.Entries) == 0:
			b.WriteString(`<p class="empty">No activity recorded yet.</p>`)
		default:
			b.WriteString(`<table class="audit"><thead><tr><th>When</th><th>What</th><th>Details</th><th>From</th></tr></thead><tbody>`)
			for _, e := range d.Entries {
				label := actionLabels[e.Action]
				if label == "" {
					label = string(e.Action)
				}
				fmt.Fprintf(&b, `<tr><td><time datetime="%s">%s</time></td><td>%s</td><td>%s</td><td>%s</td></tr>`,
					e.CreatedAt.UTC().Format(time.RFC3339), e.CreatedAt.UTC().Format("Jan 2 15:04"),
					templ.EscapeString(label), templ.EscapeString(describe(e)), templ.EscapeString(e.RemoteIP))
			}
			b.WriteString(`</tbody></table>`)
		}
		b.WriteString(`</section>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
	return layouts.Base(layouts.Page{Title: "Admin", Body: body})
}
