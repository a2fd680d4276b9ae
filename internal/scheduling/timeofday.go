package scheduling

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a minute-granular clock time, stored as minutes from midnight.
// It renders as "15:04", which is also the wire and database representation.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("parse time of day %q: out of range", s)
	}
	return NewTimeOfDay(hour, minute), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Add returns the time of day the given number of minutes later.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DateOf truncates a timestamp to its calendar date at midnight UTC.
// The facility runs in a single timezone, so dates carry no zone of their own.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "2006-01-02" calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders a calendar date as "2006-01-02".
func FormatDate(d time.Time) string {
	return d.Format("2006-01-02")
}

// WorkHours is a doctor's working window on one weekday.
type WorkHours struct {
	Start TimeOfDay `json:"start_time"`
	End   TimeOfDay `json:"end_time"`
}

// WeeklySchedule maps weekday names ("Monday") to working hours.
// A weekday absent from the map is a non-working day.
type WeeklySchedule map[string]WorkHours

// HoursOn returns the working hours for a weekday, if any.
func (ws WeeklySchedule) HoursOn(day time.Weekday) (WorkHours, bool) {
	h, ok := ws[day.String()]
	return h, ok
}
