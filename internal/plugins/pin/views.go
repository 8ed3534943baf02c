package pin

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/kidstube/web/internal/templates/layouts"
)

// Timing controls how the keypad fragment polls while it waits.
type Timing struct {
	// Poll is how soon a submitting keypad asks for the result.
	Poll time.Duration

	// Lockout is how long a locked keypad waits before refreshing itself
	// (by then the challenge has closed).
	Lockout time.Duration

	// Finish is how long "PIN accepted" stays before navigation.
	Finish time.Duration
}

func htmxDelay(d time.Duration) string {
	if d < 50*time.Millisecond {
		d = 50 * time.Millisecond
	}
	return fmt.Sprintf("load delay:%dms", d.Milliseconds())
}

// Fallback is the full-page refresh that stands in for the keypad's htmx
// polling when scripts are off. Nil unless snap is waiting on something.
func (t Timing) Fallback(snap Snapshot) *layouts.Refresh {
	var after time.Duration
	dest := "/profiles"
	switch snap.State {
	case StateSubmitting:
		after = t.Poll
	case StateLocked:
		after = t.Lockout
	case StateResolved:
		after, dest = t.Finish, "/pin/finish"
	default:
		return nil
	}
	// Meta refresh only counts whole seconds.
	secs := int((after + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return &layouts.Refresh{Seconds: secs, URL: dest}
}

// Modal renders the keypad for snap, or an empty placeholder when closed.
// The outer element is always #pin-modal so every fragment swaps in place.
func Modal(snap Snapshot, timing Timing) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !snap.Open() {
			_, err := io.WriteString(w, `<div id="pin-modal"></div>`)
			return err
		}

		var poll string
		switch snap.State {
		case StateSubmitting:
			poll = fmt.Sprintf(` hx-get="/pin/status" hx-trigger="%s" hx-swap="outerHTML"`, htmxDelay(timing.Poll))
		case StateLocked:
			poll = fmt.Sprintf(` hx-get="/pin/status" hx-trigger="%s" hx-swap="outerHTML"`, htmxDelay(timing.Lockout))
		case StateResolved:
			poll = fmt.Sprintf(` hx-get="/pin/finish" hx-trigger="%s"`, htmxDelay(timing.Finish))
		}

		var b strings.Builder
		fmt.Fprintf(&b, `<div id="pin-modal" class="pin-modal pin-%s"%s>`, snap.State, poll)
		b.WriteString(`<div class="pin-dialog" role="dialog" aria-modal="true">`)

		if snap.Purpose == PurposeAdmin {
			b.WriteString(`<h2>Enter the admin PIN</h2>`)
		} else {
			if snap.Target.Avatar != "" {
				fmt.Fprintf(&b, `<img class="avatar" src="%s" alt="">`, templ.EscapeString(snap.Target.Avatar))
			}
			fmt.Fprintf(&b, `<h2>Enter the PIN for %s</h2>`, templ.EscapeString(snap.Target.Name))
		}

		fmt.Fprintf(&b, `<div class="pin-dots" aria-label="%d of %d digits entered">`, snap.Digits, PINLength)
		for i := 0; i < PINLength; i++ {
			if i < snap.Digits || snap.State == StateSubmitting {
				b.WriteString(`<span class="dot filled"></span>`)
			} else {
				b.WriteString(`<span class="dot"></span>`)
			}
		}
		b.WriteString(`</div>`)

		if snap.Message != "" {
			fmt.Fprintf(&b, `<p class="pin-message" role="status">%s</p>`, templ.EscapeString(snap.Message))
		}
		if snap.State == StateResolved {
			b.WriteString(`<p><a href="/pin/finish">Continue</a></p>`)
		}

		csrf := templ.EscapeString(layouts.GetCSRFToken(ctx))
		disabled := ""
		if !snap.AcceptsInput() {
			disabled = " disabled"
		}

		b.WriteString(`<div class="keypad">`)
		for _, d := range "1234567890" {
			fmt.Fprintf(&b, `<form method="post" action="/pin/digit" hx-post="/pin/digit" hx-target="#pin-modal" hx-swap="outerHTML">`+
				`<input type="hidden" name="csrf_token" value="%s"><input type="hidden" name="d" value="%c">`+
				`<button type="submit"%s>%c</button></form>`, csrf, d, disabled, d)
		}
		for _, action := range []struct{ path, label string }{
			{"/pin/delete", "Delete"},
			{"/pin/clear", "Clear"},
			{"/pin/submit", "OK"},
		} {
			fmt.Fprintf(&b, `<form method="post" action="%s" hx-post="%s" hx-target="#pin-modal" hx-swap="outerHTML">`+
				`<input type="hidden" name="csrf_token" value="%s"><button type="submit"%s>%s</button></form>`,
				action.path, action.path, csrf, disabled, action.label)
		}
		b.WriteString(`</div>`)

		fmt.Fprintf(&b, `<form method="post" action="/pin/close" hx-post="/pin/close" hx-target="#pin-modal" hx-swap="outerHTML">`+
			`<input type="hidden" name="csrf_token" value="%s"><button type="submit" class="close">Cancel</button></form>`, csrf)
		b.WriteString(`</div></div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}
