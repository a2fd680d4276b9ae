package dialogue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/careline/medical-scheduling/internal/scheduling"
)

// normalizeNow is a Monday.
var normalizeNow = time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC)

func TestNormalizeDate(t *testing.T) {
	n := NewKeywordNormalizer()
	today := scheduling.DateOf(normalizeNow)

	cases := []struct {
		phrase string
		want   time.Time
	}{
		{"today", today},
		{"tomorrow morning", today.AddDate(0, 0, 1)},
		{"friday", time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)},
		{"next friday afternoon", time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)},
		// A weekday matching today means the next week's occurrence.
		{"monday", time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)},
		{"2026-07-15", time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)},
		// Unrecognized input falls back to a week out.
		{"whenever works", today.AddDate(0, 0, 7)},
	}

	for _, tc := range cases {
		t.Run(tc.phrase, func(t *testing.T) {
			got := n.NormalizeDate(tc.phrase, normalizeNow)
			assert.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
		})
	}
}

func TestNormalizeTime(t *testing.T) {
	n := NewKeywordNormalizer()

	cases := []struct {
		phrase string
		want   string
	}{
		{"morning", "09:00"},
		{"tomorrow afternoon", "14:00"},
		{"in the evening", "17:00"},
		{"around noon", "12:00"},
		{"at 15:30 please", "15:30"},
		{"whenever", "10:00"},
	}

	for _, tc := range cases {
		t.Run(tc.phrase, func(t *testing.T) {
			assert.Equal(t, tc.want, n.NormalizeTime(tc.phrase).String())
		})
	}
}

func TestNormalizeTimeAfternoonIsStable(t *testing.T) {
	n := NewKeywordNormalizer()

	// "afternoon" contains "noon"; the longer keyword must win every call.
	for i := 0; i < 200; i++ {
		assert.Equal(t, "14:00", n.NormalizeTime("tomorrow afternoon").String())
	}
}

func TestNormalizeDateMultipleWeekdaysIsStable(t *testing.T) {
	n := NewKeywordNormalizer()
	want := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)

	// Two weekdays in one phrase resolve to the same day on every call.
	for i := 0; i < 200; i++ {
		got := n.NormalizeDate("monday or tuesday", normalizeNow)
		assert.True(t, got.Equal(want), "got %s want %s", got, want)
	}
}
