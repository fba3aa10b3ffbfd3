// Package dateparse resolves relative dates for event log filters.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Parse resolves a relative date against the current time. See ParseFrom.
func Parse(input string) (time.Time, bool) {
	return ParseFrom(input, time.Now())
}

// ParseFrom resolves input relative to now. All results are UTC; day-based
// forms resolve to midnight. Supported:
//   - now, today, yesterday
//   - monday, tue, ... (most recent past occurrence; today's weekday = a week ago)
//   - this week, last week, this month, last month (start of the period)
//   - -N (N days ago), N days ago, N weeks ago, N hours ago
func ParseFrom(input string, now time.Time) (time.Time, bool) {
	input = strings.ToLower(strings.TrimSpace(input))
	now = now.UTC()
	today := startOfDay(now)

	switch input {
	case "now":
		return now, true
	case "today":
		return today, true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "this week", "sow":
		return startOfWeek(today), true
	case "last week", "lastweek":
		return startOfWeek(today).AddDate(0, 0, -7), true
	case "this month", "som":
		return startOfMonth(today), true
	case "last month", "lastmonth":
		return startOfMonth(today).AddDate(0, -1, 0), true
	}

	if day, ok := parseWeekday(input); ok {
		return previousWeekday(today, day), true
	}

	if rest, ok := strings.CutPrefix(input, "-"); ok {
		if days, err := strconv.Atoi(rest); err == nil && days >= 0 {
			return today.AddDate(0, 0, -days), true
		}
	}

	if match := agoPattern.FindStringSubmatch(input); match != nil {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return time.Time{}, false
		}
		switch match[2] {
		case "hour":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return today.AddDate(0, 0, -n), true
		case "week":
			return today.AddDate(0, 0, -7*n), true
		}
	}

	return time.Time{}, false
}

var agoPattern = regexp.MustCompile(`^(\d{1,4}) (hour|day|week)s? ago$`)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func parseWeekday(input string) (time.Weekday, bool) {
	input = strings.TrimPrefix(input, "last ")

	switch input {
	case "sunday", "sun":
		return time.Sunday, true
	case "monday", "mon":
		return time.Monday, true
	case "tuesday", "tue":
		return time.Tuesday, true
	case "wednesday", "wed":
		return time.Wednesday, true
	case "thursday", "thu":
		return time.Thursday, true
	case "friday", "fri":
		return time.Friday, true
	case "saturday", "sat":
		return time.Saturday, true
	}
	return 0, false
}

// previousWeekday returns the latest day before today that falls on target.
func previousWeekday(today time.Time, target time.Weekday) time.Time {
	daysSince := int(today.Weekday() - target)
	if daysSince <= 0 {
		daysSince += 7
	}
	return today.AddDate(0, 0, -daysSince)
}
