package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/termin-watch/internal/alert"
	"github.com/maltedev/termin-watch/internal/history"
	"github.com/maltedev/termin-watch/internal/slots"
)

// Cycle runs one cycle, alerts new relevant slots and publishes the report.
// Failures are reported, never returned.
func (o *Orchestrator) Cycle(ctx context.Context) Report {
	rep := Report{ID: uuid.New(), StartedAt: o.now()}
	hits, all, err := o.RunOnce(ctx)
	return o.finish(ctx, rep, hits, all, err)
}

// Replay runs the alerting half of a cycle on saved page markup instead of
// a live session.
func (o *Orchestrator) Replay(ctx context.Context, r io.Reader) Report {
	rep := Report{ID: uuid.New(), StartedAt: o.now()}
	all, err := slots.ParseDocument(r, o.opts.Portal.HeaderSelector)
	var hits []slots.Record
	if err == nil {
		hits = slots.FilterRelevant(all, rep.StartedAt)
	}
	return o.finish(ctx, rep, hits, all, err)
}

func (o *Orchestrator) finish(ctx context.Context, rep Report, hits, all []slots.Record, err error) Report {
	rep.All, rep.Hits, rep.Err = all, hits, err
	stamp := rep.StartedAt.In(slots.Zone).Format(time.RFC3339)

	switch {
	case err != nil:
		o.logger.Error("cycle failed", "cycle_id", rep.ID, "error", err)
		fmt.Fprintf(o.console, "[%s] ERROR: %v\n", stamp, err)
	case len(hits) == 0:
		o.logger.Info("no relevant slots", "cycle_id", rep.ID, "locations", len(all))
		fmt.Fprintf(o.console, "[%s] ❌ Kein Termin heute/morgen. (%d Standorte gelesen)\n", stamp, len(all))
	default:
		for _, h := range hits {
			if o.memory.Seen(h) {
				fmt.Fprintf(o.console, "[%s] 🔁 (bereits gemeldet) %s: %s\n", stamp, h.Location, alert.SignatureOf(h))
			}
		}
		o.memory, rep.Dispatched = o.dispatcher.Process(ctx, hits, o.memory)
		for _, d := range rep.Dispatched {
			fmt.Fprintf(o.console, "[%s] ✅ %s\n", stamp, alert.Message(d))
		}
	}

	rep.Duration = o.now().Sub(rep.StartedAt)

	if o.recorder != nil {
		if rerr := o.recorder.Record(ctx, toHistory(rep)); rerr != nil {
			o.logger.Warn("history write failed", "cycle_id", rep.ID, "error", rerr)
		}
	}
	if o.observer != nil {
		o.observer.Observe(rep, o.memory.Clone())
	}
	return rep
}

func toHistory(rep Report) history.Cycle {
	c := history.Cycle{
		ID:         rep.ID,
		StartedAt:  rep.StartedAt,
		Duration:   rep.Duration,
		All:        rep.All,
		Hits:       rep.Hits,
		Dispatched: len(rep.Dispatched),
	}
	if rep.Err != nil {
		c.Err = rep.Err.Error()
	}
	return c
}

// Run repeats cycles until ctx is done. Cancellation is only observed
// between cycles; a running cycle always completes.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("watch started",
		"url", o.opts.StartURL,
		"label", o.opts.ServiceLabel,
		"interval", o.cadence.Interval(),
		"channels", o.dispatcher.Channels())

	for {
		rep := o.Cycle(ctx)
		if err := o.cadence.Wait(ctx, rep.StartedAt); err != nil {
			o.logger.Info("watch stopped", "reason", err)
			return err
		}
	}
}
