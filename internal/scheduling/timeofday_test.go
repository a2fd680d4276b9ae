package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 30, got.Minute())
	assert.Equal(t, "09:30", got.String())

	for _, bad := range []string{"", "nine", "25:00", "10:61"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTimeOfDayAdd(t *testing.T) {
	start := NewTimeOfDay(11, 30)
	assert.Equal(t, "12:30", start.Add(60).String())
	assert.Equal(t, "11:00", start.Add(-30).String())
}

func TestDateOfTruncatesToMidnightUTC(t *testing.T) {
	ts := time.Date(2026, 6, 2, 15, 45, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), DateOf(ts))
}

func TestWeeklyScheduleHoursOn(t *testing.T) {
	ws := WeeklySchedule{
		time.Monday.String(): {Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(17, 0)},
	}

	hours, ok := ws.HoursOn(time.Monday)
	require.True(t, ok)
	assert.Equal(t, "09:00", hours.Start.String())

	_, ok = ws.HoursOn(time.Sunday)
	assert.False(t, ok)
}
