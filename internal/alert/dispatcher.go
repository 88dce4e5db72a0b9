package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/termin-watch/internal/slots"
)

// DefaultTitle is the notification title.
const DefaultTitle = "Termin frei!"

// Channel delivers an alert to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

type Dispatcher struct {
	title    string
	channels []Channel
	logger   *slog.Logger
	now      func() time.Time
}

func NewDispatcher(title string, logger *slog.Logger, channels ...Channel) *Dispatcher {
	if title == "" {
		title = DefaultTitle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		title:    title,
		channels: channels,
		logger:   logger.With("component", "alert"),
		now:      time.Now,
	}
}

// Channels returns the names of the configured channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, c := range d.channels {
		names = append(names, c.Name())
	}
	return names
}

// Process alerts every relevant slot whose signature differs from the one
// remembered for its location, then records the new signature. Channel
// failures are logged and do not stop the remaining channels or the memory
// update. It returns the updated memory and the slots that were alerted.
func (d *Dispatcher) Process(ctx context.Context, relevant []slots.Record, mem Memory) (Memory, []slots.Record) {
	if mem == nil {
		mem = make(Memory)
	}

	var sent []slots.Record
	for _, r := range relevant {
		if mem.Seen(r) {
			d.logger.Info("slot already alerted", "location", r.Location, "signature", SignatureOf(r))
			continue
		}

		a := New(d.title, r, d.now())
		d.logger.Info("slot alert", "alert_id", a.ID, "message", a.Message)
		for _, c := range d.channels {
			if err := d.send(ctx, c, a); err != nil {
				d.logger.Error("alert channel failed", "channel", c.Name(), "alert_id", a.ID, "error", err)
			}
		}

		mem[r.Location] = a.Signature
		sent = append(sent, r)
	}
	return mem, sent
}

func (d *Dispatcher) send(ctx context.Context, c Channel, a Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel panicked: %v", r)
		}
	}()
	return c.Send(ctx, a)
}
