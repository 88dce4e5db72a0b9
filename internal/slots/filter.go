package slots

import (
	"time"
	_ "time/tzdata"
)

// Zone is the time zone the portal publishes its dates in.
var Zone = mustLoad("Europe/Berlin")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// FilterRelevant keeps the records dated today or tomorrow, where today is
// now's calendar date in Zone. Order is preserved.
func FilterRelevant(records []Record, now time.Time) []Record {
	today := DateOf(now.In(Zone))
	tomorrow := today.AddDays(1)

	var out []Record
	for _, r := range records {
		if !r.Date.Valid() {
			continue
		}
		if r.Date == today || r.Date == tomorrow {
			out = append(out, r)
		}
	}
	return out
}
