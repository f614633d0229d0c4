package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format exchanged with providers
const DateLayout = "2006-01-02"

// ParseInt converts string to int
func ParseInt(value string) int {
	parsedValue, _ := strconv.Atoi(strings.TrimSpace(value))
	return parsedValue
}

// StartOfDay returns midnight of t's calendar date in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// ParseLocalDateTime parses a provider date and clock time as wall time in
// loc. Dates may use '-' or '/' separators and may carry a time part, which
// clock overrides when set.
func ParseLocalDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date = strings.ReplaceAll(strings.TrimSpace(date), "/", "-")
	clock = strings.TrimSpace(clock)

	datePart, timePart, _ := strings.Cut(strings.Replace(date, "T", " ", 1), " ")
	day, err := time.ParseInLocation(DateLayout, datePart, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s", date)
	}

	if clock == "" {
		clock = timePart
	}
	if clock == "" {
		return day, nil
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", clock)
	}
	hour, errH := strconv.Atoi(parts[0])
	minute, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", clock)
	}
	second := 0
	if len(parts) > 2 {
		second = ParseInt(strings.SplitN(parts[2], ".", 2)[0])
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, loc), nil
}
