// Package timeutil parses the loose timestamp formats encountered in feeds,
// APIs, and URLs, and normalizes everything to UTC.
package timeutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthNames resolves English month names (and common abbreviations) used in
// URL slugs like "january-9-2026".
var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "sept": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var monthDayYearRe = regexp.MustCompile(`^([a-z]+)-(\d{1,2})-(\d{4})`)

// layouts tried in order by Parse. RSS dates are usually RFC 1123/822
// variants; APIs tend toward ISO 8601.
var layouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Parse attempts to interpret value as a timestamp. It accepts ISO 8601 and
// RFC 822/1123 strings, "month-day-year" slugs, and numeric unix timestamps.
// The boolean result reports whether parsing succeeded.
func Parse(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, ok := parseMonthDayYear(value); ok {
		return t, true
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return FromUnix(int64(secs)), true
	}

	return time.Time{}, false
}

func parseMonthDayYear(value string) (time.Time, bool) {
	m := monthDayYearRe.FindStringSubmatch(strings.ToLower(value))
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthNames[m[1]]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(m[2])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// MonthByName resolves a month name or abbreviation, case-insensitively.
func MonthByName(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// FromUnix converts a unix timestamp in seconds to UTC.
func FromUnix(secs int64) time.Time {
	return time.Unix(secs, 0).UTC()
}

// Since returns the UTC instant n days before now.
func Since(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}

// ISO renders t as an ISO-8601 UTC string with a "Z" suffix.
func ISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// WithinWindow reports whether published falls at or after since. A nil
// published timestamp passes; the caller flags those items instead of
// fabricating a time.
func WithinWindow(published *time.Time, since time.Time) bool {
	if published == nil {
		return true
	}
	return !published.Before(since)
}
