// Package submission discovers, resolves and stages student submissions.
package submission

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Example: "152711-351765 - Alice Smith - May 18, 2025 1224 PM".
var folderPattern = regexp.MustCompile(`^\d+-\d+\s*-\s*(.+?)\s*-\s*([A-Za-z]+)\s+(\d{1,2}),\s*(\d{4})\s+(\d{3,4})\s*([AaPp][Mm])$`)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// ParseFolderName extracts the student name and submission time from a
// folder name. Times are wall-clock values in UTC.
func ParseFolderName(name string) (string, time.Time, error) {
	m := folderPattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrFormat, name)
	}
	student, monthName, dayStr, yearStr, clock, meridiem := m[1], m[2], m[3], m[4], m[5], strings.ToUpper(m[6])

	month, ok := months[strings.ToLower(monthName)]
	if !ok {
		return "", time.Time{}, fmt.Errorf("%w: unknown month %q", ErrFormat, monthName)
	}
	day, _ := strconv.Atoi(dayStr)
	year, _ := strconv.Atoi(yearStr)

	split := len(clock) - 2
	hour, _ := strconv.Atoi(clock[:split])
	minute, _ := strconv.Atoi(clock[split:])
	if hour < 1 || hour > 12 || minute > 59 {
		return "", time.Time{}, fmt.Errorf("%w: invalid clock time %q", ErrFormat, clock)
	}
	switch {
	case meridiem == "AM" && hour == 12:
		hour = 0
	case meridiem == "PM" && hour != 12:
		hour += 12
	}

	ts := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if ts.Day() != day || ts.Month() != month {
		return "", time.Time{}, fmt.Errorf("%w: invalid date %s %d, %d", ErrFormat, monthName, day, year)
	}
	return student, ts, nil
}
