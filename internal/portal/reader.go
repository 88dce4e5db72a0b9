package portal

import (
	"strings"
	"time"

	"github.com/maltedev/termin-watch/internal/dom"
	"github.com/maltedev/termin-watch/internal/slots"
)

// ReadSlots polls the location accordion and returns the records of the
// first pass that parses at least one header. When the deadline passes
// first, the last pass's records are returned, which may be empty; that is
// not an error.
func (d *Driver) ReadSlots(timeout time.Duration) []slots.Record {
	deadline := d.now().Add(timeout)
	var last []slots.Record

	for d.now().Before(deadline) {
		d.DismissOverlays(d.opts.OverlayBudget)

		headers, err := d.page.Query(d.opts.HeaderSelector, d.opts.MaxHeaders)
		if err != nil || len(headers) == 0 {
			d.page.Wait(d.opts.PollInterval)
			continue
		}

		out := parseHeaders(headers)
		if len(out) > 0 {
			d.logger.Debug("read slot headers", "headers", len(headers), "records", len(out))
			return out
		}
		last = out
		d.page.Wait(d.opts.PollInterval)
	}

	d.logger.Warn("no slot headers parsed before deadline", "selector", d.opts.HeaderSelector)
	return last
}

func parseHeaders(headers []dom.Element) []slots.Record {
	var out []slots.Record
	for _, h := range headers {
		if visible, err := h.IsVisible(); err != nil || !visible {
			continue
		}
		if rec, ok := slots.ParseHeader(headerText(h)); ok {
			out = append(out, rec)
		}
	}
	return out
}

// headerText prefers the title attribute, which holds the full summary
// even when the rendered text is truncated.
func headerText(h dom.Element) string {
	if title, err := h.Attribute("title"); err == nil && strings.TrimSpace(title) != "" {
		return title
	}
	text, err := h.InnerText()
	if err != nil {
		return ""
	}
	return text
}
