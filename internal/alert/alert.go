// Package alert suppresses repeat notifications for unchanged slots and fans
// new ones out to the configured channels.
package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/termin-watch/internal/slots"
)

// Signature is "dd.mm.yyyy HH:MM", the dedup key for one location.
type Signature string

func SignatureOf(r slots.Record) Signature {
	return Signature(r.Date.String() + " " + r.Time.String())
}

// Memory maps a location to the signature last alerted for it. Entries are
// only ever overwritten, never removed.
type Memory map[string]Signature

// Seen reports whether r's signature was the last one alerted for its
// location.
func (m Memory) Seen(r slots.Record) bool {
	sig, ok := m[r.Location]
	return ok && sig == SignatureOf(r)
}

func (m Memory) Clone() Memory {
	out := make(Memory, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Message renders the notification text for r.
func Message(r slots.Record) string {
	return fmt.Sprintf("%s: Termin ab %s, %s Uhr (heute/morgen!)", r.Location, r.Date, r.Time)
}

// Alert is one notification handed to every channel.
type Alert struct {
	ID        uuid.UUID
	Title     string
	Message   string
	Record    slots.Record
	Signature Signature
	RaisedAt  time.Time
}

func New(title string, r slots.Record, at time.Time) Alert {
	return Alert{
		ID:        uuid.New(),
		Title:     title,
		Message:   Message(r),
		Record:    r,
		Signature: SignatureOf(r),
		RaisedAt:  at,
	}
}
