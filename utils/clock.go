package utils

import (
	"time"

	"gorm.io/datatypes"
)

// Clock is the time source of services and jobs.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Used by tests and replays.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

// DayStart is local midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Today is the half-open window [midnight, next midnight) containing now.
func Today(now time.Time, loc *time.Location) (time.Time, time.Time) {
	start := DayStart(now, loc)
	return start, start.AddDate(0, 0, 1)
}

// Yesterday is the half-open window of the day before now.
func Yesterday(now time.Time, loc *time.Location) (time.Time, time.Time) {
	end := DayStart(now, loc)
	return end.AddDate(0, 0, -1), end
}

// CalendarDate stores the local calendar day of t as a UTC midnight date,
// so date columns compare the same regardless of the competition timezone.
func CalendarDate(t time.Time, loc *time.Location) datatypes.Date {
	y, m, d := t.In(loc).Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
