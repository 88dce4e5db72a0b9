package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func record(loc, date string) Record {
	d, err := ParseDate(date)
	if err != nil {
		panic(err)
	}
	return Record{Location: loc, Date: d, Time: Clock{Hour: 9}}
}

func TestFilterRelevant(t *testing.T) {
	now := time.Date(2026, time.January, 5, 10, 0, 0, 0, Zone)
	input := []Record{
		record("A", "04.01.2026"),
		record("B", "05.01.2026"),
		record("C", "06.01.2026"),
		record("D", "07.01.2026"),
		{Location: "E"},
	}

	got := FilterRelevant(input, now)

	assert.Equal(t, []Record{record("B", "05.01.2026"), record("C", "06.01.2026")}, got)
}

func TestFilterRelevantIsIdempotent(t *testing.T) {
	now := time.Date(2026, time.January, 5, 10, 0, 0, 0, Zone)
	input := []Record{
		record("A", "05.01.2026"),
		record("B", "06.01.2026"),
		record("C", "08.01.2026"),
	}

	once := FilterRelevant(input, now)
	twice := FilterRelevant(once, now)

	assert.Equal(t, once, twice)
}

func TestFilterRelevantUsesBerlinCalendar(t *testing.T) {
	// 23:30 UTC on the 4th is already the 5th in Berlin.
	now := time.Date(2026, time.January, 4, 23, 30, 0, 0, time.UTC)
	input := []Record{
		record("A", "04.01.2026"),
		record("B", "05.01.2026"),
		record("C", "06.01.2026"),
	}

	got := FilterRelevant(input, now)

	assert.Equal(t, []Record{record("B", "05.01.2026"), record("C", "06.01.2026")}, got)
}

func TestFilterRelevantAcrossYearEnd(t *testing.T) {
	now := time.Date(2025, time.December, 31, 8, 0, 0, 0, Zone)
	input := []Record{
		record("A", "31.12.2025"),
		record("B", "01.01.2026"),
		record("C", "02.01.2026"),
	}

	got := FilterRelevant(input, now)

	assert.Equal(t, []Record{record("A", "31.12.2025"), record("B", "01.01.2026")}, got)
}

func TestFilterRelevantEmpty(t *testing.T) {
	assert.Empty(t, FilterRelevant(nil, time.Now()))
}
