// Package calendar computes the schedule of attendance sessions for a
// formation's date range. A session day is a weekday (Monday-Friday);
// each session day carries a morning and an afternoon attendance period.
package calendar

import "time"

// SessionDays returns the ordered weekday dates between start and end
// inclusive. A start falling on a weekend is moved forward to the next
// Monday before iteration, so the first emitted day may be later than
// the nominal start. When start is after end the result is empty.
//
// All returned values are normalized to midnight UTC.
func SessionDays(start, end time.Time) []time.Time {
	day := DateOnly(start)
	last := DateOnly(end)

	switch day.Weekday() {
	case time.Saturday:
		day = day.AddDate(0, 0, 2)
	case time.Sunday:
		day = day.AddDate(0, 0, 1)
	}

	var days []time.Time
	for !day.After(last) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			day = day.AddDate(0, 0, 1)
			continue
		}
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// DateOnly strips the time-of-day component, keeping midnight UTC.
// Session dates are compared by calendar day throughout the ledger.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
