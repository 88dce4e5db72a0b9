package portal

import (
	"io"
	"log/slog"
	"time"

	"github.com/maltedev/termin-watch/internal/dom/domtest"
	"github.com/maltedev/termin-watch/internal/slots"
)

const serviceLabel = "Erstzulassung (eines Gebrauchtfahrzeuges aus dem Ausland)"

var testHeaders = []string{
	"Zulassungsstelle Ober-Ramstadt, Termine ab 05.01.2026, 13:15 Uhr",
	"Zulassungsstelle Dieburg, Termine ab 12.01.2026, 08:00 Uhr",
	"Zulassungsstelle Pfungstadt",
}

func newClock() *domtest.Clock {
	return domtest.NewClock(time.Date(2026, time.January, 5, 9, 0, 0, 0, slots.Zone))
}

func newForm(opts domtest.FormOptions) *domtest.Form {
	if opts.Label == "" {
		opts.Label = serviceLabel
	}
	if opts.Headers == nil {
		opts.Headers = testHeaders
	}
	return domtest.NewForm(newClock(), opts)
}

func newDriver(page *domtest.Page) *Driver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDriver(page, DefaultOptions(), logger).WithClock(page.Clock.Now)
}
