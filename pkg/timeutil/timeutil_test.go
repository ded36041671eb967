package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOf_UsesCampusTimezone(t *testing.T) {
	// 17:30 UTC is already 01:30 next day in UTC+8.
	instant := time.Date(2025, 3, 10, 17, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), DateOf(instant))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 10, 9, 0, 0, 0, CampusTZ)
	b := time.Date(2025, 3, 11, 23, 59, 0, 0, CampusTZ)

	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a.Add(3*time.Hour)))
	assert.True(t, IsConsecutiveDay(a, b))
	assert.False(t, IsSameDay(a, b))
}

func TestDaysBetween_AcrossMonthBoundary(t *testing.T) {
	a := time.Date(2024, 2, 28, 12, 0, 0, 0, CampusTZ)
	b := time.Date(2024, 3, 1, 12, 0, 0, 0, CampusTZ)

	assert.Equal(t, 2, DaysBetween(a, b))
}

func TestLastNDates(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, CampusTZ)

	dates := LastNDates(now, 3)

	assert.Len(t, dates, 3)
	assert.Equal(t, "2024-12-31", FormatDate(dates[0]))
	assert.Equal(t, "2025-01-02", FormatDate(dates[2]))
	assert.Nil(t, LastNDates(now, 0))
}

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := ParseDate("2025-06-01")

	assert.NoError(t, err)
	assert.Equal(t, "2025-06-01", FormatDate(d))
}
