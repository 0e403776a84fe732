// Package dates provides the calendar arithmetic and date formatting used to
// build stay ranges.
//
// All values are calendar dates: a time.Time at midnight UTC. Working in UTC
// keeps AddDays free of daylight-saving drift, so adding n days always moves
// exactly n calendar days.
//
// Two formats exist because the booking API and the UI date picker disagree:
//
//	FormatAPIDate  2026-10-16  (request bodies, responses, confirmation text)
//	FormatUIDate   16/10/2026  (check-in / check-out inputs)
package dates

import (
	"time"
)

const (
	apiLayout = "2006-01-02"
	uiLayout  = "02/01/2006"
)

// Clock supplies the current calendar date.
type Clock interface {
	Today() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Today returns the current local calendar date as a UTC midnight value.
func (SystemClock) Today() time.Time {
	return Date(time.Now())
}

// Date truncates t to its calendar date, keeping the year/month/day t shows
// in its own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar date n days after base. n may be negative or
// large. base is not modified.
func AddDays(base time.Time, n int) time.Time {
	return Date(base).AddDate(0, 0, n)
}

// FormatAPIDate renders t as YYYY-MM-DD.
func FormatAPIDate(t time.Time) string {
	return Date(t).Format(apiLayout)
}

// FormatUIDate renders t as DD/MM/YYYY.
func FormatUIDate(t time.Time) string {
	return Date(t).Format(uiLayout)
}

// ParseAPIDate parses a YYYY-MM-DD date.
func ParseAPIDate(s string) (time.Time, error) {
	return time.Parse(apiLayout, s)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}
