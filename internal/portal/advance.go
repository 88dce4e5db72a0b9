package portal

import (
	"strings"
	"time"

	"github.com/maltedev/termin-watch/internal/dom"
)

// Advance clicks the form's submit control once it exists and is enabled,
// then absorbs the confirmation popup that may follow.
func (d *Driver) Advance(timeout time.Duration) error {
	deadline := d.now().Add(timeout)
	var lastErr error

	for d.now().Before(deadline) {
		d.DismissOverlays(d.opts.OverlayBudget)

		res := d.submitControl()
		if !res.IsReady() {
			lastErr = res.Err
			d.page.Wait(d.opts.PollInterval)
			continue
		}

		btn := res.Value
		if err := btn.ScrollIntoView(); err != nil {
			d.logger.Debug("scroll submit into view failed", "error", err)
		}
		if err := d.click(btn, d.opts.SubmitClickTimeout); err != nil {
			lastErr = err
			d.page.Wait(d.opts.PollInterval)
			continue
		}

		d.page.Wait(d.opts.ClickSettle)
		d.DismissOverlays(d.opts.PostSubmitOverlayBudget)
		d.logger.Info("form submitted", "selector", d.opts.SubmitSelector)
		return nil
	}

	return &AdvanceTimeout{Selector: d.opts.SubmitSelector, LastErr: lastErr}
}

func (d *Driver) submitControl() Result[dom.Element] {
	found, err := d.page.Query(d.opts.SubmitSelector, 1)
	if err != nil {
		return NotReady[dom.Element](err)
	}
	if len(found) == 0 {
		return NotReady[dom.Element](errSubmitMissing)
	}

	btn := found[0]
	disabled, err := btn.Attribute("aria-disabled")
	if err != nil {
		return NotReady[dom.Element](err)
	}
	if strings.EqualFold(strings.TrimSpace(disabled), "true") {
		return NotReady[dom.Element](errSubmitDisabled)
	}
	return Ready(btn)
}
