package portal

import (
	"regexp"
	"time"

	"github.com/maltedev/termin-watch/internal/dom"
)

var (
	acceptWords   = []string{"Akzeptieren", "Alle akzeptieren", "Einverstanden", "Zustimmen", "OK"}
	acceptPattern = regexp.MustCompile(`(?i)akzept`)
	closeWords    = []string{"OK", "Ok", "Ja", "Schließen", "Schliessen"}
)

// DismissOverlays clicks away cookie banners and info dialogs in every
// frame until a pass finds nothing to click or the budget runs out. It
// returns the number of clicks and never fails.
func (d *Driver) DismissOverlays(budget time.Duration) int {
	total := 0
	deadline := d.now().Add(budget)

	for d.now().Before(deadline) {
		n := d.acceptConsent() + d.closeDialog()
		if n == 0 {
			break
		}
		total += n
		d.page.Wait(d.opts.OverlayPause)
	}

	if total > 0 {
		d.logger.Debug("dismissed overlays", "clicks", total)
	}
	return total
}

// acceptConsent clicks the first visible consent button of each frame.
func (d *Driver) acceptConsent() int {
	clicked := 0
	for _, f := range d.page.Frames() {
		candidates := make([]dom.Element, 0, len(acceptWords)+1)
		for _, w := range acceptWords {
			candidates = append(candidates, f.ButtonByName(w))
		}
		candidates = append(candidates, f.ButtonWithText(acceptPattern))

		for _, b := range candidates {
			if d.clickIfVisible(b) {
				clicked++
				break
			}
		}
	}
	return clicked
}

// closeDialog clicks at most one generic confirm/close button.
func (d *Driver) closeDialog() int {
	for _, f := range d.page.Frames() {
		for _, w := range closeWords {
			if d.clickIfVisible(f.ButtonByName(w)) {
				return 1
			}
		}
	}
	return 0
}

func (d *Driver) clickIfVisible(el dom.Element) bool {
	if el == nil {
		return false
	}
	visible, err := el.IsVisible()
	if err != nil || !visible {
		return false
	}
	if err := el.Click(d.opts.OverlayClickTimeout); err != nil {
		d.logger.Debug("overlay click failed", "error", err)
		return false
	}
	return true
}
