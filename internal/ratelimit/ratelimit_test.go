package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCadence_Delay(t *testing.T) {
	start := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		interval time.Duration
		elapsed  time.Duration
		expected time.Duration
	}{
		{"Fast cycle waits the remainder", 10 * time.Second, 3 * time.Second, 7 * time.Second},
		{"Exact interval hits the floor", 10 * time.Second, 10 * time.Second, time.Second},
		{"Overrun hits the floor", 10 * time.Second, 40 * time.Second, time.Second},
		{"Remainder just above the floor", 10 * time.Second, 8500 * time.Millisecond, 1500 * time.Millisecond},
		{"Zero interval", 0, 0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCadence(tt.interval)
			c.now = func() time.Time { return start.Add(tt.elapsed) }
			assert.Equal(t, tt.expected, c.Delay(start))
		})
	}
}

func TestCadence_Wait(t *testing.T) {
	start := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

	t.Run("Sleeps the computed delay", func(t *testing.T) {
		var slept time.Duration
		c := NewCadence(10 * time.Second)
		c.now = func() time.Time { return start.Add(4 * time.Second) }
		c.after = func(d time.Duration) <-chan time.Time {
			slept = d
			ch := make(chan time.Time, 1)
			ch <- start
			return ch
		}

		assert.NoError(t, c.Wait(context.Background(), start))
		assert.Equal(t, 6*time.Second, slept)
	})

	t.Run("Stops on cancellation", func(t *testing.T) {
		c := NewCadence(time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, c.Wait(ctx, time.Now()), context.Canceled)
	})
}
