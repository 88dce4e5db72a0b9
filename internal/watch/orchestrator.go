// Package watch runs poll cycles against the portal: open a page session,
// drive the booking form, read and filter slots, alert on new ones and wait
// for the next cycle.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/termin-watch/internal/alert"
	"github.com/maltedev/termin-watch/internal/dom"
	"github.com/maltedev/termin-watch/internal/history"
	"github.com/maltedev/termin-watch/internal/portal"
	"github.com/maltedev/termin-watch/internal/ratelimit"
	"github.com/maltedev/termin-watch/internal/slots"
	"github.com/maltedev/termin-watch/internal/storage"
)

// Session is one page session. It is closed at the end of every cycle.
type Session interface {
	Page() dom.Page
	Close() error
}

type Opener interface {
	Open(ctx context.Context) (Session, error)
}

type OpenerFunc func(ctx context.Context) (Session, error)

func (f OpenerFunc) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Recorder persists cycle outcomes.
type Recorder interface {
	Record(ctx context.Context, c history.Cycle) error
}

// Observer receives every finished cycle with a copy of the alert memory.
type Observer interface {
	Observe(rep Report, mem alert.Memory)
}

// Report is the outcome of one cycle.
type Report struct {
	ID         uuid.UUID
	StartedAt  time.Time
	Duration   time.Duration
	All        []slots.Record
	Hits       []slots.Record
	Dispatched []slots.Record
	Err        error
}

type Options struct {
	StartURL     string
	ServiceLabel string
	TargetCount  int
	// SiteName prefixes the failure capture, as in "<site>_debug.png".
	SiteName string
	Interval time.Duration

	NavigateTimeout time.Duration
	SubmitSettle    time.Duration

	Portal *portal.Options
}

func DefaultOptions() Options {
	return Options{
		StartURL:        "https://tevis.ekom21.de/dar/select2?md=5",
		ServiceLabel:    "Erstzulassung (eines Gebrauchtfahrzeuges aus dem Ausland)",
		TargetCount:     1,
		SiteName:        "ladadi",
		Interval:        10 * time.Second,
		NavigateTimeout: 45 * time.Second,
		SubmitSettle:    800 * time.Millisecond,
		Portal:          portal.DefaultOptions(),
	}
}

// Orchestrator owns the alert memory and runs cycles one at a time. It is
// not safe for concurrent use.
type Orchestrator struct {
	opener     Opener
	dispatcher *alert.Dispatcher
	opts       Options
	cadence    *ratelimit.Cadence
	memory     alert.Memory

	artifacts *storage.Artifacts
	recorder  Recorder
	observer  Observer
	console   io.Writer

	logger *slog.Logger
	now    func() time.Time
}

func New(opener Opener, dispatcher *alert.Dispatcher, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Portal == nil {
		opts.Portal = portal.DefaultOptions()
	}
	if opts.TargetCount == 0 {
		opts.TargetCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		opener:     opener,
		dispatcher: dispatcher,
		opts:       opts,
		cadence:    ratelimit.NewCadence(opts.Interval),
		memory:     make(alert.Memory),
		console:    os.Stdout,
		logger:     logger.With("component", "watch"),
		now:        time.Now,
	}
}

// WithArtifacts enables debug captures.
func (o *Orchestrator) WithArtifacts(a *storage.Artifacts) *Orchestrator {
	o.artifacts = a
	return o
}

func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.recorder = r
	return o
}

func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	o.observer = obs
	return o
}

// WithConsole redirects the per-cycle status lines.
func (o *Orchestrator) WithConsole(w io.Writer) *Orchestrator {
	o.console = w
	return o
}

// WithClock replaces the clock used for deadlines, the date filter and
// reports.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	o.cadence.WithClock(now)
	return o
}

// Memory returns a copy of the alert memory.
func (o *Orchestrator) Memory() alert.Memory {
	return o.memory.Clone()
}

// RunOnce performs one cycle without alerting: it returns the slots within
// today or tomorrow and every slot read. The session is closed on every
// path.
func (o *Orchestrator) RunOnce(ctx context.Context) (hits, all []slots.Record, err error) {
	sess, err := o.opener.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			o.logger.Warn("close session failed", "error", cerr)
		}
	}()

	page := sess.Page()
	all, err = o.drive(page)
	if err != nil {
		o.capture(page, o.opts.SiteName+"_debug", err.Error())
		return nil, nil, err
	}

	hits = slots.FilterRelevant(all, o.now())
	if len(hits) > 0 {
		o.capture(page, "found_debug", fmt.Sprintf("%d relevant slots", len(hits)))
	}
	return hits, all, nil
}

type step struct {
	name string
	run  func() error
}

func (o *Orchestrator) drive(page dom.Page) ([]slots.Record, error) {
	d := portal.NewDriver(page, o.opts.Portal, o.logger).WithClock(o.now)
	popts := d.Options()

	var all []slots.Record
	steps := []step{
		{"navigate", func() error {
			return page.Navigate(o.opts.StartURL, o.opts.NavigateTimeout)
		}},
		{"clear_overlays", func() error {
			d.DismissOverlays(popts.InitialOverlayBudget)
			return nil
		}},
		{"set_counter", func() error {
			return d.SetCounter(o.opts.ServiceLabel, o.opts.TargetCount, popts.CounterTimeout)
		}},
		{"advance", func() error {
			return d.Advance(popts.AdvanceTimeout)
		}},
		{"settle", func() error {
			page.Wait(o.opts.SubmitSettle)
			return nil
		}},
		{"read_slots", func() error {
			all = d.ReadSlots(popts.SlotsTimeout)
			return nil
		}},
	}

	for _, s := range steps {
		started := o.now()
		if err := s.run(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		o.logger.Debug("step done", "step", s.name, "took", o.now().Sub(started))
	}
	return all, nil
}

func (o *Orchestrator) capture(page dom.Page, name, reason string) {
	if o.artifacts == nil {
		return
	}
	art, err := o.artifacts.Capture(page, name, reason)
	if err != nil {
		o.logger.Warn("debug capture incomplete", "name", name,
			"screenshot", art.Screenshot, "html", art.HTML, "error", err)
		return
	}
	o.logger.Info("debug capture saved", "screenshot", art.Screenshot, "html", art.HTML)
}
