package portal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/termin-watch/internal/dom/domtest"
)

func TestAdvance(t *testing.T) {
	t.Run("Clicks once enabled", func(t *testing.T) {
		form := newForm(domtest.FormOptions{SubmitEnabledAfter: time.Second})
		d := newDriver(form.Page)

		require.NoError(t, d.Advance(35*time.Second))
		assert.Equal(t, 1, form.Submit.Clicks)
		assert.False(t, form.Accordion.Hidden)
		assert.GreaterOrEqual(t, form.Page.Waited, time.Second)
	})

	t.Run("Confirmation popup absorbed", func(t *testing.T) {
		form := newForm(domtest.FormOptions{ConfirmDialog: true})
		d := newDriver(form.Page)

		require.NoError(t, d.Advance(35*time.Second))
		assert.Nil(t, form.Page.Root.Find(".ui-dialog"))
	})

	t.Run("Intercepted click is dispatched", func(t *testing.T) {
		form := newForm(domtest.FormOptions{})
		form.Submit.ClickErr = assert.AnError
		d := newDriver(form.Page)

		require.NoError(t, d.Advance(35*time.Second))
		assert.Equal(t, 1, form.Submit.Dispatches)
		assert.False(t, form.Accordion.Hidden)
	})

	t.Run("Submit control missing", func(t *testing.T) {
		form := newForm(domtest.FormOptions{})
		form.Submit.Remove()
		d := newDriver(form.Page)

		err := d.Advance(2 * time.Second)
		var at *AdvanceTimeout
		require.ErrorAs(t, err, &at)
		assert.Equal(t, "#WeiterButton", at.Selector)
		assert.ErrorIs(t, err, errSubmitMissing)
		assert.Equal(t, 2*time.Second, form.Page.Waited)
	})

	t.Run("Submit control never enabled", func(t *testing.T) {
		form := newForm(domtest.FormOptions{})
		form.Submit.Attrs["aria-disabled"] = "true"
		d := newDriver(form.Page)

		err := d.Advance(2 * time.Second)
		assert.ErrorIs(t, err, errSubmitDisabled)
		assert.Zero(t, form.Submit.Clicks)
	})
}
