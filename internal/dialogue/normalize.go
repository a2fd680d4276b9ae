package dialogue

import (
	"regexp"
	"strings"
	"time"

	"github.com/careline/medical-scheduling/internal/scheduling"
)

// DateTimeNormalizer turns free-text date and time preferences into a
// concrete calendar date and slot start. The keyword implementation below is
// deliberately small; a real date parser can replace it without touching the
// state machine.
type DateTimeNormalizer interface {
	NormalizeDate(phrase string, now time.Time) time.Time
	NormalizeTime(phrase string) scheduling.TimeOfDay
}

// Defaults when a phrase carries no recognizable date or time.
var (
	defaultLeadDays = 7
	defaultSlotTime = scheduling.NewTimeOfDay(10, 0)
	// Ordered longest-first so "afternoon" wins over its "noon" substring.
	timeOfDayKeywords = []struct {
		keyword string
		slot    scheduling.TimeOfDay
	}{
		{"afternoon", scheduling.NewTimeOfDay(14, 0)},
		{"morning", scheduling.NewTimeOfDay(9, 0)},
		{"evening", scheduling.NewTimeOfDay(17, 0)},
		{"noon", scheduling.NewTimeOfDay(12, 0)},
	}
	clockPattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// KeywordNormalizer resolves today/tomorrow/weekday phrases and the
// morning/afternoon/evening/noon time words.
type KeywordNormalizer struct{}

func NewKeywordNormalizer() *KeywordNormalizer {
	return &KeywordNormalizer{}
}

func (n *KeywordNormalizer) NormalizeDate(phrase string, now time.Time) time.Time {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	today := scheduling.DateOf(now)

	switch {
	case strings.Contains(lower, "today"):
		return today
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1)
	}

	// Fixed Sunday-first scan keeps phrases naming several weekdays stable.
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		if !strings.Contains(lower, strings.ToLower(weekday.String())) {
			continue
		}
		// Next strictly-future occurrence of the weekday.
		days := (int(weekday) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days)
	}

	if d, err := scheduling.ParseDate(lower); err == nil {
		return d
	}

	return today.AddDate(0, 0, defaultLeadDays)
}

func (n *KeywordNormalizer) NormalizeTime(phrase string) scheduling.TimeOfDay {
	lower := strings.ToLower(strings.TrimSpace(phrase))

	for _, kw := range timeOfDayKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.slot
		}
	}

	if m := clockPattern.FindStringSubmatch(lower); m != nil {
		if t, err := scheduling.ParseTimeOfDay(m[1] + ":" + m[2]); err == nil {
			return t
		}
	}

	return defaultSlotTime
}
