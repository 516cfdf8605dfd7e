// Package dates provides calendar arithmetic on date-only values.
//
// A date is represented as a time.Time at midnight UTC. Values coming from
// wall-clock timestamps are converted with Of, which keeps the calendar day of
// the timestamp in its own location.
package dates

import (
	"time"
)

// Layout is the text form used for due dates everywhere (YYYY-MM-DD).
const Layout = "2006-01-02"

// New returns the date for year, month and day.
func New(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Of returns the calendar date of t as seen in t's own location.
func Of(t time.Time) time.Time {
	y, m, d := t.Date()
	return New(y, m, d)
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, time.UTC)
}

// Format renders a date as YYYY-MM-DD.
func Format(d time.Time) string {
	return d.Format(Layout)
}

// AddDays shifts d by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// LastDayOfMonth returns the number of days in month m of year y.
func LastDayOfMonth(y int, m time.Month) int {
	// Day 0 of the following month normalizes to the last day of m.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths advances d by n calendar months, clamping the day to the last
// valid day of the target month (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	total := int(m) - 1 + n
	y += floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	if last := LastDayOfMonth(y, month); day > last {
		day = last
	}
	return New(y, month, day)
}

// Range returns n consecutive dates starting at start.
func Range(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, AddDays(start, i))
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
