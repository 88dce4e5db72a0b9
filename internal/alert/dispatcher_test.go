package alert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/termin-watch/internal/slots"
)

type recordingChannel struct {
	name  string
	err   error
	panic bool
	sent  []Alert
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(ctx context.Context, a Alert) error {
	if c.panic {
		panic("boom")
	}
	c.sent = append(c.sent, a)
	return c.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(loc string, day, hour, minute int) slots.Record {
	return slots.Record{
		Location: loc,
		Date:     slots.Date{Year: 2026, Month: time.January, Day: day},
		Time:     slots.Clock{Hour: hour, Minute: minute},
	}
}

func TestMessage(t *testing.T) {
	r := record("Zulassungsstelle Ober-Ramstadt", 5, 13, 15)
	assert.Equal(t, "Zulassungsstelle Ober-Ramstadt: Termin ab 05.01.2026, 13:15 Uhr (heute/morgen!)", Message(r))
	assert.Equal(t, Signature("05.01.2026 13:15"), SignatureOf(r))
}

func TestAlertNew(t *testing.T) {
	at := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	a := New("Termin frei!", record("Dieburg", 6, 8, 0), at)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, "Termin frei!", a.Title)
	assert.Equal(t, "Dieburg: Termin ab 06.01.2026, 08:00 Uhr (heute/morgen!)", a.Message)
	assert.Equal(t, Signature("06.01.2026 08:00"), a.Signature)
	assert.Equal(t, at, a.RaisedAt)
}

func TestMemory(t *testing.T) {
	mem := Memory{"Dieburg": "06.01.2026 08:00"}

	assert.True(t, mem.Seen(record("Dieburg", 6, 8, 0)))
	assert.False(t, mem.Seen(record("Dieburg", 6, 8, 30)))
	assert.False(t, mem.Seen(record("Pfungstadt", 6, 8, 0)))

	clone := mem.Clone()
	clone["Dieburg"] = "x"
	assert.Equal(t, Signature("06.01.2026 08:00"), mem["Dieburg"])
}

func TestDispatcher_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("Alerts once per signature", func(t *testing.T) {
		ch := &recordingChannel{name: "rec"}
		d := NewDispatcher("", discard(), ch)
		r := record("Ober-Ramstadt", 5, 13, 15)

		mem, sent := d.Process(ctx, []slots.Record{r}, Memory{})
		require.Len(t, sent, 1)
		assert.Equal(t, Signature("05.01.2026 13:15"), mem["Ober-Ramstadt"])

		mem, sent = d.Process(ctx, []slots.Record{r}, mem)
		assert.Empty(t, sent)
		require.Len(t, ch.sent, 1)
		assert.Equal(t, DefaultTitle, ch.sent[0].Title)
		assert.Equal(t, Message(r), ch.sent[0].Message)
	})

	t.Run("Changed signature alerts again", func(t *testing.T) {
		ch := &recordingChannel{name: "rec"}
		d := NewDispatcher("LaDaDi: Termin frei!", discard(), ch)

		mem, _ := d.Process(ctx, []slots.Record{record("Dieburg", 5, 13, 15)}, nil)
		mem, sent := d.Process(ctx, []slots.Record{record("Dieburg", 5, 14, 0)}, mem)

		require.Len(t, sent, 1)
		assert.Len(t, ch.sent, 2)
		assert.Equal(t, Signature("05.01.2026 14:00"), mem["Dieburg"])
	})

	t.Run("Disappearing slot stays suppressed", func(t *testing.T) {
		ch := &recordingChannel{name: "rec"}
		d := NewDispatcher("", discard(), ch)
		r := record("Dieburg", 5, 13, 15)

		mem, _ := d.Process(ctx, []slots.Record{r}, nil)
		mem, _ = d.Process(ctx, nil, mem)
		_, sent := d.Process(ctx, []slots.Record{r}, mem)

		assert.Empty(t, sent)
		assert.Len(t, ch.sent, 1)
	})

	t.Run("Multiple locations in one pass", func(t *testing.T) {
		ch := &recordingChannel{name: "rec"}
		d := NewDispatcher("", discard(), ch)

		mem, sent := d.Process(ctx, []slots.Record{
			record("Dieburg", 5, 13, 15),
			record("Pfungstadt", 6, 9, 0),
		}, nil)

		assert.Len(t, sent, 2)
		assert.Len(t, mem, 2)
	})

	t.Run("Channel failures are isolated", func(t *testing.T) {
		failing := &recordingChannel{name: "failing", err: errors.New("network down")}
		panicking := &recordingChannel{name: "panicking", panic: true}
		ok := &recordingChannel{name: "ok"}
		d := NewDispatcher("", discard(), failing, panicking, ok)

		mem, sent := d.Process(ctx, []slots.Record{record("Dieburg", 5, 13, 15)}, nil)

		assert.Len(t, sent, 1)
		assert.Len(t, failing.sent, 1)
		assert.Len(t, ok.sent, 1)
		assert.Contains(t, mem, "Dieburg")
	})

	t.Run("No channels still updates memory", func(t *testing.T) {
		d := NewDispatcher("", discard())
		mem, sent := d.Process(ctx, []slots.Record{record("Dieburg", 5, 13, 15)}, nil)

		assert.Len(t, sent, 1)
		assert.Equal(t, Signature("05.01.2026 13:15"), mem["Dieburg"])
	})
}

func TestDispatcher_Channels(t *testing.T) {
	d := NewDispatcher("", discard(), &recordingChannel{name: "a"}, &recordingChannel{name: "b"})
	assert.Equal(t, []string{"a", "b"}, d.Channels())
}
