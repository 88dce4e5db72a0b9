package portal

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/maltedev/termin-watch/internal/dom"
)

// maxIncrements bounds the clicks per drive; the form only ever needs one.
const maxIncrements = 2

var integerPattern = regexp.MustCompile(`\b(\d+)\b`)

// Counter is a located stepper widget.
type Counter struct {
	Element dom.Element
	Box     dom.Box
	Value   int
}

func extractInt(s string) (int, bool) {
	m := integerPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ReadCounter reads a stepper's value from its visible input, falling back
// to the first integer in its text. It is NotReady when neither shows a
// number.
func ReadCounter(w dom.Element) Result[int] {
	if inputs, err := w.Query("input", 1); err == nil && len(inputs) > 0 {
		if visible, err := inputs[0].IsVisible(); err == nil && visible {
			if v, err := inputs[0].InputValue(); err == nil {
				if n, ok := extractInt(v); ok {
					return Ready(n)
				}
			}
		}
	}

	if text, err := w.InnerText(); err == nil {
		if n, ok := extractInt(text); ok {
			return Ready(n)
		}
	}

	return NotReady[int](errValueMissing)
}

// LocateCounter finds the stepper belonging to the line item labelled
// label. It polls until timeout and fails with *LocatorError.
func (d *Driver) LocateCounter(label string, timeout time.Duration) (*Counter, error) {
	deadline := d.now().Add(timeout)
	lastErr := errLabelMissing

	for d.now().Before(deadline) {
		d.DismissOverlays(d.opts.OverlayBudget)

		res := d.locateOnce(label)
		switch res.State {
		case StateReady:
			return res.Value, nil
		case StateFatal:
			return nil, res.Err
		}

		lastErr = res.Err
		wait := d.opts.RetryBackoff
		if errors.Is(res.Err, errLabelMissing) {
			wait = d.opts.PollInterval
		}
		d.logger.Debug("counter not ready", "label", label, "reason", res.Err)
		d.page.Wait(wait)
	}

	reason := "row not found"
	if errors.Is(lastErr, errCounterMissing) {
		reason = "counter not found"
	}
	return nil, &LocatorError{Label: label, Reason: reason, Last: lastErr}
}

func (d *Driver) locateOnce(label string) Result[*Counter] {
	labelEl, err := d.page.FindText(label)
	if err != nil {
		return NotReady[*Counter](fmt.Errorf("%w: %v", errLabelMissing, err))
	}
	if labelEl == nil {
		return NotReady[*Counter](errLabelMissing)
	}

	row, err := d.findRow(labelEl, label)
	if err != nil {
		return NotReady[*Counter](err)
	}
	if err := row.ScrollIntoView(); err != nil {
		d.logger.Debug("scroll row into view failed", "error", err)
	}

	labelBox, err := labelEl.BoundingBox()
	if err != nil || labelBox == nil {
		return NotReady[*Counter](errLabelBoxMissing)
	}

	counter, err := d.findCounter(row, labelBox.Right())
	if err != nil {
		return NotReady[*Counter](err)
	}
	return Ready(counter)
}

func (d *Driver) findRow(labelEl dom.Element, label string) (dom.Element, error) {
	ancestors, err := labelEl.Ancestors(d.opts.MaxAncestors)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRowMissing, err)
	}

	cands := make([]RowCandidate, len(ancestors))
	for i, a := range ancestors {
		cands[i] = snapshotRow(a, label)
	}

	idx := SelectRow(cands, d.opts.MaxRowHeight)
	if idx < 0 {
		return nil, errRowMissing
	}
	return ancestors[idx], nil
}

// snapshotRow leaves fields zero when a lookup fails so the candidate is
// filtered out.
func snapshotRow(el dom.Element, label string) RowCandidate {
	var c RowCandidate

	contains, err := el.ContainsText(label)
	if err != nil || !contains {
		return c
	}
	c.ContainsLabel = true

	if c.Buttons, err = el.Count("button"); err != nil || c.Buttons < 2 {
		return c
	}

	if box, err := el.BoundingBox(); err == nil {
		c.Box = box
	}
	return c
}

func (d *Driver) findCounter(row dom.Element, labelRight float64) (*Counter, error) {
	boxes, err := row.Query("div, li, span", d.opts.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCounterMissing, err)
	}

	cands := make([]CounterCandidate, len(boxes))
	for i, b := range boxes {
		cands[i] = snapshotCounter(b)
	}

	idx := SelectCounter(cands, labelRight, d.opts.LabelTolerance)
	if idx < 0 {
		return nil, errCounterMissing
	}

	return &Counter{Element: boxes[idx], Box: *cands[idx].Box, Value: cands[idx].Value}, nil
}

func snapshotCounter(el dom.Element) CounterCandidate {
	var c CounterCandidate

	visible, err := el.IsVisible()
	if err != nil || !visible {
		return c
	}
	c.Visible = true

	if c.Buttons, err = el.Count("button"); err != nil || c.Buttons < 2 {
		return c
	}

	v := ReadCounter(el)
	if !v.IsReady() {
		return c
	}
	c.Readable = true
	c.Value = v.Value

	if box, err := el.BoundingBox(); err == nil {
		c.Box = box
	}
	return c
}

// incrementButton returns the rightmost button of the stepper.
func (d *Driver) incrementButton(w dom.Element) dom.Element {
	buttons, err := w.Query("button", d.opts.MaxButtons)
	if err != nil {
		return nil
	}

	var (
		best  dom.Element
		bestX float64
	)
	for _, b := range buttons {
		box, err := b.BoundingBox()
		if err != nil || box == nil {
			continue
		}
		if best == nil || box.X > bestX {
			best, bestX = b, box.X
		}
	}
	return best
}

// DriveCounter clicks the stepper's increment button until it shows
// target. It never decrements: a value above target is a *CounterError.
func (d *Driver) DriveCounter(w dom.Element, target int, timeout time.Duration) error {
	first := ReadCounter(w)
	if first.IsReady() {
		if first.Value == target {
			return nil
		}
		if first.Value > target {
			return &CounterError{Kind: CounterAboveTarget, Value: first.Value, Target: target, Readable: true}
		}
	}

	inc := d.incrementButton(w)
	if inc == nil {
		return ErrIncrementMissing
	}

	deadline := d.now().Add(timeout)
	for i := 0; i < maxIncrements && d.now().Before(deadline); i++ {
		cur := ReadCounter(w)
		switch {
		case !cur.IsReady():
			return &CounterError{Kind: CounterUnreadable, Target: target}
		case cur.Value == target:
			return nil
		case cur.Value > target:
			return &CounterError{Kind: CounterAboveTarget, Value: cur.Value, Target: target, Readable: true}
		}

		if err := d.click(inc, d.opts.ClickTimeout); err != nil {
			return fmt.Errorf("increment counter: %w", err)
		}
		d.page.Wait(d.opts.ClickSettle)
		d.DismissOverlays(d.opts.OverlayBudget)
	}

	last := ReadCounter(w)
	if last.IsReady() && last.Value == target {
		return nil
	}
	return &CounterError{Kind: CounterStuck, Value: last.Value, Target: target, Readable: last.IsReady()}
}

// SetCounter locates the stepper for label and drives it to target.
// Transient failures are retried until timeout; *CounterError is not.
func (d *Driver) SetCounter(label string, target int, timeout time.Duration) error {
	deadline := d.now().Add(timeout)
	var lastErr error

	for {
		remaining := deadline.Sub(d.now())
		if remaining <= 0 {
			break
		}

		counter, err := d.LocateCounter(label, remaining)
		if err != nil {
			return err
		}

		err = d.DriveCounter(counter.Element, target, deadline.Sub(d.now()))
		if err == nil {
			d.logger.Info("counter set", "label", label, "value", target)
			return nil
		}

		var ce *CounterError
		if errors.As(err, &ce) {
			return err
		}

		lastErr = err
		d.logger.Debug("retrying counter", "label", label, "error", err)
		d.page.Wait(d.opts.RetryBackoff)
	}

	if lastErr == nil {
		return &LocatorError{Label: label, Reason: "row not found", Last: errLabelMissing}
	}
	return fmt.Errorf("set counter for %q to %d: %w", label, target, lastErr)
}
