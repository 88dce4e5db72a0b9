package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/termin-watch/internal/alert"
	"github.com/maltedev/termin-watch/internal/slots"
	"github.com/maltedev/termin-watch/internal/watch"
)

const maxRecentAlerts = 100

type CycleSummary struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Locations  int       `json:"locations"`
	Hits       int       `json:"hits"`
	Dispatched int       `json:"dispatched"`
	Error      string    `json:"error,omitempty"`
}

type Slot struct {
	Location string `json:"location"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Relevant bool   `json:"relevant"`
	Alerted  bool   `json:"alerted"`
}

type AlertEntry struct {
	CycleID   uuid.UUID `json:"cycle_id"`
	Location  string    `json:"location"`
	Signature string    `json:"signature"`
	Message   string    `json:"message"`
	RaisedAt  time.Time `json:"raised_at"`
}

type Status struct {
	Cycles              int           `json:"cycles"`
	Failures            int           `json:"failures"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastCycle           *CycleSummary `json:"last_cycle,omitempty"`
	LastSuccess         *time.Time    `json:"last_success,omitempty"`
	Memory              alert.Memory  `json:"memory"`
}

// Board keeps the latest cycle outcome for the status server. The watch
// loop writes it, handlers only read copies.
type Board struct {
	mu      sync.RWMutex
	status  Status
	slots   []Slot
	alerts  []AlertEntry
	started time.Time
}

func NewBoard() *Board {
	return &Board{
		status:  Status{Memory: alert.Memory{}},
		started: time.Now(),
	}
}

// Observe implements watch.Observer.
func (b *Board) Observe(rep watch.Report, mem alert.Memory) {
	summary := &CycleSummary{
		ID:         rep.ID,
		StartedAt:  rep.StartedAt,
		DurationMs: rep.Duration.Milliseconds(),
		Locations:  len(rep.All),
		Hits:       len(rep.Hits),
		Dispatched: len(rep.Dispatched),
	}
	if rep.Err != nil {
		summary.Error = rep.Err.Error()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.status.Cycles++
	b.status.LastCycle = summary
	b.status.Memory = mem

	if rep.Err != nil {
		b.status.Failures++
		b.status.ConsecutiveFailures++
		return
	}
	b.status.ConsecutiveFailures = 0
	at := rep.StartedAt
	b.status.LastSuccess = &at
	b.slots = toSlots(rep)

	for _, r := range rep.Dispatched {
		b.alerts = append(b.alerts, AlertEntry{
			CycleID:   rep.ID,
			Location:  r.Location,
			Signature: string(alert.SignatureOf(r)),
			Message:   alert.Message(r),
			RaisedAt:  rep.StartedAt.Add(rep.Duration),
		})
	}
	if n := len(b.alerts); n > maxRecentAlerts {
		b.alerts = append([]AlertEntry(nil), b.alerts[n-maxRecentAlerts:]...)
	}
}

func toSlots(rep watch.Report) []Slot {
	hit := make(map[slots.Record]bool, len(rep.Hits))
	for _, r := range rep.Hits {
		hit[r] = true
	}
	sent := make(map[slots.Record]bool, len(rep.Dispatched))
	for _, r := range rep.Dispatched {
		sent[r] = true
	}

	out := make([]Slot, 0, len(rep.All))
	for _, r := range rep.All {
		out = append(out, Slot{
			Location: r.Location,
			Date:     r.Date.String(),
			Time:     r.Time.String(),
			Relevant: hit[r],
			Alerted:  sent[r],
		})
	}
	return out
}

func (b *Board) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := b.status
	st.Memory = b.status.Memory.Clone()
	if st.LastCycle != nil {
		c := *st.LastCycle
		st.LastCycle = &c
	}
	return st
}

// Slots returns the slots read by the last successful cycle.
func (b *Board) Slots() []Slot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Slot{}, b.slots...)
}

// Alerts returns recent alerts, newest first.
func (b *Board) Alerts() []AlertEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]AlertEntry, len(b.alerts))
	for i, a := range b.alerts {
		out[len(b.alerts)-1-i] = a
	}
	return out
}

func (b *Board) Uptime() time.Duration {
	return time.Since(b.started)
}
