package utils

import "time"

// ISODateFormat is the canonical date format for exports and JSON.
const ISODateFormat = "2006-01-02"

// acceptedDateFormats covers the layouts seen across real loan exports.
var acceptedDateFormats = []string{
	ISODateFormat,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02-01-2006",
}

// ParseFlexibleDate tries the accepted layouts in order and truncates
// the result to the day, since the domain works in calendar dates. The
// boolean is false when no layout matches; callers treat that as a
// skippable row, not a fatal error.
func ParseFlexibleDate(dateStr string) (time.Time, bool) {
	for _, layout := range acceptedDateFormats {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return TruncateToDay(t.UTC()), true
		}
	}
	return time.Time{}, false
}

// FormatISODate renders a date for CSV/JSON output. Zero times render
// as an empty string.
func FormatISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ISODateFormat)
}

// TruncateToDay drops the time-of-day component, keeping the location.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WholeDaysBetween returns the number of whole days from a to b,
// negative when b is before a.
func WholeDaysBetween(a, b time.Time) int {
	return int(TruncateToDay(b).Sub(TruncateToDay(a)).Hours() / 24)
}
