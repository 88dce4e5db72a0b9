// Package portal drives the appointment portal's booking form: it clears
// overlays, sets the service stepper, submits the form and reads the
// location accordion. Every procedure polls the page until its deadline and
// tolerates individual lookup failures.
package portal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/termin-watch/internal/dom"
	"github.com/maltedev/termin-watch/internal/slots"
)

type Options struct {
	SubmitSelector string
	HeaderSelector string

	OverlayBudget           time.Duration
	InitialOverlayBudget    time.Duration
	PostSubmitOverlayBudget time.Duration
	OverlayPause            time.Duration

	PollInterval time.Duration
	RetryBackoff time.Duration
	ClickSettle  time.Duration

	OverlayClickTimeout time.Duration
	ClickTimeout        time.Duration
	SubmitClickTimeout  time.Duration

	CounterTimeout time.Duration
	AdvanceTimeout time.Duration
	SlotsTimeout   time.Duration

	MaxRowHeight   float64
	LabelTolerance float64
	MaxAncestors   int
	MaxCandidates  int
	MaxButtons     int
	MaxHeaders     int
}

func DefaultOptions() *Options {
	return &Options{
		SubmitSelector: "#WeiterButton",
		HeaderSelector: slots.DefaultHeaderSelector,

		OverlayBudget:           2 * time.Second,
		InitialOverlayBudget:    6 * time.Second,
		PostSubmitOverlayBudget: 4 * time.Second,
		OverlayPause:            200 * time.Millisecond,

		PollInterval: 250 * time.Millisecond,
		RetryBackoff: 300 * time.Millisecond,
		ClickSettle:  250 * time.Millisecond,

		OverlayClickTimeout: 800 * time.Millisecond,
		ClickTimeout:        1500 * time.Millisecond,
		SubmitClickTimeout:  2 * time.Second,

		CounterTimeout: 45 * time.Second,
		AdvanceTimeout: 35 * time.Second,
		SlotsTimeout:   30 * time.Second,

		MaxRowHeight:   450,
		LabelTolerance: 5,
		MaxAncestors:   20,
		MaxCandidates:  250,
		MaxButtons:     6,
		MaxHeaders:     50,
	}
}

// Driver runs the portal procedures against one page. It is not safe for
// concurrent use and must not outlive the page session.
type Driver struct {
	page   dom.Page
	opts   *Options
	logger *slog.Logger
	now    func() time.Time
}

func NewDriver(page dom.Page, opts *Options, logger *slog.Logger) *Driver {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Driver{
		page:   page,
		opts:   opts,
		logger: logger.With("component", "portal"),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for deadlines.
func (d *Driver) WithClock(now func() time.Time) *Driver {
	d.now = now
	return d
}

func (d *Driver) Options() *Options {
	return d.opts
}

// click performs a forced click and falls back to invoking the element's
// click() directly when the pointer event is intercepted.
func (d *Driver) click(el dom.Element, timeout time.Duration) error {
	err := el.Click(timeout)
	if err == nil {
		return nil
	}

	d.logger.Debug("forced click failed, dispatching", "error", err)
	if derr := el.DispatchClick(); derr != nil {
		return fmt.Errorf("click failed: %w (dispatch: %v)", err, derr)
	}
	return nil
}
