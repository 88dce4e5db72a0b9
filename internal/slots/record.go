package slots

import (
	"fmt"
	"time"
)

const (
	dateLayout = "02.01.2006"
	timeLayout = "15:04"
)

// Date is a calendar date without a time zone. The zero Date is invalid.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses dd.mm.yyyy and rejects impossible dates.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns t's calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) Valid() bool {
	return d.Year > 0 && d.Month >= time.January && d.Month <= time.December && d.Day > 0
}

// AddDays returns the date n days later, normalizing month and year.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) String() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, int(d.Month), d.Year)
}

// Clock is a 24-hour wall clock time with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses HH:MM.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Record is the earliest slot one office offers, as shown in its
// accordion header.
type Record struct {
	Location string
	Date     Date
	Time     Clock
}

func (r Record) String() string {
	return fmt.Sprintf("%s: %s %s", r.Location, r.Date, r.Time)
}
