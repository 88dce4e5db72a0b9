package portal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/termin-watch/internal/dom/domtest"
)

func TestDismissOverlays(t *testing.T) {
	t.Run("Nothing to dismiss", func(t *testing.T) {
		form := newForm(domtest.FormOptions{})
		d := newDriver(form.Page)

		assert.Equal(t, 0, d.DismissOverlays(2*time.Second))
		assert.Zero(t, form.Page.Waited)
		assert.Zero(t, form.Submit.Clicks)
	})

	t.Run("Cookie banner accepted", func(t *testing.T) {
		form := newForm(domtest.FormOptions{CookieBanner: true})
		d := newDriver(form.Page)

		assert.Equal(t, 1, d.DismissOverlays(2*time.Second))
		assert.Nil(t, form.Page.Root.Find(".cookie-banner"))
		assert.Equal(t, 200*time.Millisecond, form.Page.Waited)
	})

	t.Run("Hidden dialog is left alone", func(t *testing.T) {
		form := newForm(domtest.FormOptions{ConfirmDialog: true})
		d := newDriver(form.Page)

		assert.Equal(t, 0, d.DismissOverlays(2*time.Second))
		assert.NotNil(t, form.Page.Root.Find(".ui-dialog"))
	})

	t.Run("Visible dialog closed", func(t *testing.T) {
		form := newForm(domtest.FormOptions{ConfirmDialog: true})
		form.Dialog.Hidden = false
		d := newDriver(form.Page)

		assert.Equal(t, 1, d.DismissOverlays(2*time.Second))
		assert.Nil(t, form.Page.Root.Find(".ui-dialog"))
	})

	t.Run("Sticky button exhausts the budget", func(t *testing.T) {
		form := newForm(domtest.FormOptions{})
		sticky := &domtest.Node{Tag: "button", Text: "Zustimmen", Box: rect(0, 0, 100, 30)}
		form.Page.Root.Append(sticky)
		d := newDriver(form.Page)

		assert.Equal(t, 10, d.DismissOverlays(2*time.Second))
		assert.Equal(t, 10, sticky.Clicks)
		assert.Equal(t, 2*time.Second, form.Page.Waited)
	})

	t.Run("Embedded frame consent", func(t *testing.T) {
		form := newForm(domtest.FormOptions{})
		frame := &domtest.Node{Tag: "body", Box: rect(0, 0, 600, 400)}
		ok := &domtest.Node{Tag: "button", Attrs: map[string]string{"aria-label": "Einverstanden"}, Text: "✓", Box: rect(10, 10, 80, 30)}
		ok.OnClick = func(n *domtest.Node) { n.Remove() }
		frame.Append(ok)
		form.Page.Embedded = []*domtest.Node{frame}
		d := newDriver(form.Page)

		assert.Equal(t, 1, d.DismissOverlays(2*time.Second))
		assert.Equal(t, 1, ok.Clicks)
		assert.Nil(t, frame.Find("button"))
	})

	t.Run("Failing click counts as nothing", func(t *testing.T) {
		form := newForm(domtest.FormOptions{CookieBanner: true})
		accept := form.Banner.Find("button")
		accept.ClickErr = assert.AnError
		d := newDriver(form.Page)

		assert.Equal(t, 0, d.DismissOverlays(2*time.Second))
		assert.Positive(t, accept.Clicks)
	})
}
