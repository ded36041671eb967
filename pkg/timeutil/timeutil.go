// Package timeutil provides calendar-date helpers for the campus timezone.
// Streaks, daily challenges and "last 7 days" activity are all defined over
// calendar dates, so every date comparison in the project goes through here.
package timeutil

import (
	"sync"
	"time"
)

// CampusTZ is the default campus timezone (UTC+8, no DST).
var CampusTZ = time.FixedZone("Asia/Kuala_Lumpur", 8*60*60)

var (
	locMu sync.RWMutex
	loc   = CampusTZ
)

// SetLocation overrides the timezone used to derive calendar dates.
// A nil location is ignored.
func SetLocation(l *time.Location) {
	if l == nil {
		return
	}
	locMu.Lock()
	loc = l
	locMu.Unlock()
}

// Location returns the timezone used to derive calendar dates.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return loc
}

// Now returns the current time in the campus timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// DateOf returns the calendar date of t in the campus timezone, encoded as
// midnight UTC of that date. Two instants on the same local day map to the
// same value, which makes dates safe to compare with == and to store in DATE columns.
func DateOf(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date.
func Today() time.Time {
	return DateOf(time.Now())
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	da, db := DateOf(a), DateOf(b)
	return int(db.Sub(da).Hours() / 24)
}

// DateDiff returns the signed number of days from date a to date b, where
// both values are already calendar dates produced by DateOf or ParseDate.
func DateDiff(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// IsSameDay checks if two instants fall on the same calendar date.
func IsSameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

// IsConsecutiveDay checks if b falls on the calendar date right after a.
func IsConsecutiveDay(a, b time.Time) bool {
	return DaysBetween(a, b) == 1
}

// LastNDates returns the n calendar dates ending at (and including) the date of now,
// oldest first.
func LastNDates(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	end := DateOf(now)
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dates[i] = end.AddDate(0, 0, i-n+1)
	}
	return dates
}

// FormatDate formats a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, value, time.UTC)
}
