package gate

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/a-h/templ"

	"github.com/kidstube/web/internal/templates/layouts"
)

// noticePage shows the reason and forwards after delay.
func noticePage(r Reason, delay time.Duration) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="notice notice-%s" role="alert">`+
			`<p>%s</p><p class="hint"><a href="%s">Continue</a></p></section>`,
			templ.EscapeString(string(r)),
			templ.EscapeString(r.Message()),
			templ.EscapeString(r.Destination()))
		return err
	})

	return layouts.Base(layouts.Page{
		Title:   "Notice",
		Refresh: &layouts.Refresh{Seconds: int(math.Ceil(delay.Seconds())), URL: r.Destination()},
		Body:    body,
	})
}
