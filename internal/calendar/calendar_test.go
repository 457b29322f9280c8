package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSessionDays_StartAfterEnd(t *testing.T) {
	days := SessionDays(date(2024, 3, 10), date(2024, 3, 1))
	assert.Empty(t, days)
}

func TestSessionDays_SingleWeekday(t *testing.T) {
	wed := date(2024, 3, 6)
	days := SessionDays(wed, wed)
	require.Len(t, days, 1)
	assert.Equal(t, wed, days[0])
}

func TestSessionDays_SaturdayStartShiftsToMonday(t *testing.T) {
	// Saturday 2024-03-02 through Friday 2024-03-08.
	days := SessionDays(date(2024, 3, 2), date(2024, 3, 8))
	require.Len(t, days, 5)
	assert.Equal(t, date(2024, 3, 4), days[0]) // Monday
	assert.Equal(t, date(2024, 3, 8), days[4]) // Friday
	for _, d := range days {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}
}

func TestSessionDays_SundayStartShiftsToMonday(t *testing.T) {
	days := SessionDays(date(2024, 3, 3), date(2024, 3, 4))
	require.Len(t, days, 1)
	assert.Equal(t, date(2024, 3, 4), days[0])
}

func TestSessionDays_WeekendOnlyRange(t *testing.T) {
	// Saturday through Sunday holds no weekday at all.
	days := SessionDays(date(2024, 3, 2), date(2024, 3, 3))
	assert.Empty(t, days)
}

func TestSessionDays_SkipsInteriorWeekends(t *testing.T) {
	// Two full weeks: Mon 2024-01-01 .. Fri 2024-01-12.
	days := SessionDays(date(2024, 1, 1), date(2024, 1, 12))
	require.Len(t, days, 10)
	assert.Equal(t, date(2024, 1, 5), days[4])
	assert.Equal(t, date(2024, 1, 8), days[5]) // weekend skipped, no gap in the slice
}

func TestSessionDays_AscendingNoDuplicates(t *testing.T) {
	days := SessionDays(date(2024, 1, 1), date(2024, 2, 29))
	for i := 1; i < len(days); i++ {
		assert.True(t, days[i].After(days[i-1]))
	}
}

func TestDateOnly_StripsClockAndZone(t *testing.T) {
	loc := time.FixedZone("UTC+0", 0)
	in := time.Date(2024, 5, 14, 17, 45, 12, 999, loc)
	assert.Equal(t, date(2024, 5, 14), DateOnly(in))
}
