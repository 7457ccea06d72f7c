package telemetry

import (
	"strings"
	"time"
)

// Canonical wire formats for query parameters.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"

	// InvalidDate is what a date or time that cannot be parsed formats to.
	InvalidDate = "Invalid date"
)

var dateLayouts = []string{
	"02-01-2006",
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var timeLayouts = []string{
	TimeLayout,
	"15:04",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006 15:04:05",
}

// ParseDate parses a datestamp in DD-MM-YYYY, YYYY-MM-DD or a datetime form
// and returns midnight UTC of that calendar day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseTimeOfDay extracts the time of day from HH:mm:ss, HH:mm or a full datetime.
func ParseTimeOfDay(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}

// FormatDate renders s as YYYY-MM-DD, or InvalidDate.
func FormatDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return InvalidDate
	}
	return t.Format(DateLayout)
}

// FormatTime renders s as HH:mm:ss, or InvalidDate.
func FormatTime(s string) string {
	d, ok := ParseTimeOfDay(s)
	if !ok {
		return InvalidDate
	}
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format(TimeLayout)
}
