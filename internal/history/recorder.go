// Package history appends every poll cycle and the slots it saw to
// Postgres. The log is write-only; alert dedup never reads it.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/maltedev/termin-watch/internal/slots"
)

const schema = `
CREATE TABLE IF NOT EXISTS poll_cycles (
	id          UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	slot_count  INT NOT NULL,
	hit_count   INT NOT NULL,
	dispatched  INT NOT NULL,
	error       TEXT
);

CREATE TABLE IF NOT EXISTS slot_observations (
	id          BIGSERIAL PRIMARY KEY,
	cycle_id    UUID NOT NULL REFERENCES poll_cycles (id) ON DELETE CASCADE,
	observed_at TIMESTAMPTZ NOT NULL,
	location    TEXT NOT NULL,
	slot_date   DATE NOT NULL,
	slot_time   TIME NOT NULL,
	relevant    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_slot_observations_observed_at ON slot_observations (observed_at);
CREATE INDEX IF NOT EXISTS idx_slot_observations_location ON slot_observations (location, slot_date);
`

// The cycle row and its observations are written by one statement.
const insertCycle = `
WITH cycle AS (
	INSERT INTO poll_cycles (id, started_at, duration_ms, slot_count, hit_count, dispatched, error)
	VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
	RETURNING id, started_at
)
INSERT INTO slot_observations (cycle_id, observed_at, location, slot_date, slot_time, relevant)
SELECT cycle.id, cycle.started_at, o.location, o.slot_date, o.slot_time::time, o.relevant
FROM cycle, unnest($8::text[], $9::date[], $10::text[], $11::bool[]) AS o(location, slot_date, slot_time, relevant)`

// Execer is the subset of *DB the recorder uses.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Cycle is one poll cycle's outcome.
type Cycle struct {
	ID         uuid.UUID
	StartedAt  time.Time
	Duration   time.Duration
	All        []slots.Record
	Hits       []slots.Record
	Dispatched int
	Err        string
}

type Recorder struct {
	db     Execer
	logger *slog.Logger
}

func NewRecorder(db Execer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger.With("component", "history")}
}

// EnsureSchema creates the tables if they do not exist.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record stores c. Every slot in c.All becomes one observation, flagged
// relevant when it is also among c.Hits.
func (r *Recorder) Record(ctx context.Context, c Cycle) error {
	hits := make(map[slots.Record]bool, len(c.Hits))
	for _, h := range c.Hits {
		hits[h] = true
	}

	n := len(c.All)
	locations := make([]string, 0, n)
	dates := make([]time.Time, 0, n)
	times := make([]string, 0, n)
	relevant := make([]bool, 0, n)
	for _, s := range c.All {
		locations = append(locations, s.Location)
		dates = append(dates, time.Date(s.Date.Year, s.Date.Month, s.Date.Day, 0, 0, 0, 0, time.UTC))
		times = append(times, s.Time.String())
		relevant = append(relevant, hits[s])
	}

	tag, err := r.db.Exec(ctx, insertCycle,
		c.ID, c.StartedAt, c.Duration.Milliseconds(), len(c.All), len(c.Hits), c.Dispatched, c.Err,
		locations, dates, times, relevant)
	if err != nil {
		return fmt.Errorf("failed to record cycle %s: %w", c.ID, err)
	}

	r.logger.Debug("cycle recorded", "cycle_id", c.ID, "observations", tag.RowsAffected())
	return nil
}
