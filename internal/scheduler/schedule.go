package scheduler

import (
	"time"

	"github.com/casamack/tibber-refiner/internal/infrastructure/config"
	"github.com/casamack/tibber-refiner/internal/refiner"
)

// ParseUpdateTime parses an update time of day, "H", "HH", "H:MM" or "HH:MM".
func ParseUpdateTime(value string) (hour, minute int, err error) {
	return config.ParseUpdateTime(value)
}

// NextRun returns the first hour:minute strictly after now, in now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, m, d+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(refiner.DateLayout)
}

// CurrentHour returns the date and hour ordinal now falls into, counted in
// elapsed hours since local midnight.
func CurrentHour(now time.Time, loc *time.Location) (date string, hour int) {
	local := now.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return local.Format(refiner.DateLayout), int(local.Sub(midnight) / time.Hour)
}

// nextHour returns the start of the hour after the one now falls into.
func nextHour(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	elapsed := local.Sub(midnight) / time.Hour
	return midnight.Add((elapsed + 1) * time.Hour)
}
