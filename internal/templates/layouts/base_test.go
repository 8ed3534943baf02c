package layouts

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func TestBase_EscapesTitleAndUser(t *testing.T) {
	ctx := SetIsAuthenticated(context.Background(), true)
	ctx = SetUserName(ctx, `<script>x</script>`)

	html := render(t, ctx, Base(Page{Title: "A & B", Body: templ.Raw("<p>hi</p>")}))

	assert.Contains(t, html, "A &amp; B")
	assert.NotContains(t, html, "<script>x</script>")
	assert.Contains(t, html, "<p>hi</p>")
	assert.Contains(t, html, `action="/logout"`)
}

func TestBase_DarkModeAndRefresh(t *testing.T) {
	ctx := SetDarkMode(context.Background(), true)

	html := render(t, ctx, Base(Page{Title: "Notice", Refresh: &Refresh{Seconds: 2, URL: "/login"}}))

	assert.Contains(t, html, `class="dark"`)
	assert.Contains(t, html, `content="2;url=/login"`)
	assert.Contains(t, html, "Light mode")
	assert.Contains(t, html, `href="/login"`)
}
