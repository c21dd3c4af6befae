// Package timeslot converts wall-clock times into comparable minute
// offsets and decides whether two class slots collide.
package timeslot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a time string that does not parse into a valid
// time of day.
type ParseError struct {
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed time %q: %s", e.Value, e.Reason)
}

// ParseMinutes converts a time-of-day string into minutes since
// midnight. Both 24-hour ("14:30") and 12-hour ("2:30 PM") forms are
// accepted since both appear in stored timetable data. For 12-hour
// input 12 AM maps to hour 0 and 12 PM stays 12.
func ParseMinutes(value string) (int, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, &ParseError{Value: value, Reason: "empty"}
	}

	var period string
	if fields := strings.Fields(raw); len(fields) == 2 {
		period = strings.ToUpper(fields[1])
		if period != "AM" && period != "PM" {
			return 0, &ParseError{Value: value, Reason: "expected AM or PM suffix"}
		}
		raw = fields[0]
	} else if len(fields) > 2 {
		return 0, &ParseError{Value: value, Reason: "too many fields"}
	}

	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, &ParseError{Value: value, Reason: "expected HH:MM"}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, &ParseError{Value: value, Reason: "hour is not a number"}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, &ParseError{Value: value, Reason: "minute is not a number"}
	}
	if minute < 0 || minute > 59 {
		return 0, &ParseError{Value: value, Reason: "minute out of range"}
	}

	if period != "" {
		if hour < 1 || hour > 12 {
			return 0, &ParseError{Value: value, Reason: "hour out of range for 12-hour clock"}
		}
		if period == "PM" && hour != 12 {
			hour += 12
		} else if period == "AM" && hour == 12 {
			hour = 0
		}
	} else if hour < 0 || hour > 23 {
		return 0, &ParseError{Value: value, Reason: "hour out of range"}
	}

	return hour*60 + minute, nil
}

// Overlaps reports whether two half-open intervals [aStart,aEnd) and
// [bStart,bEnd) on the same day intersect. Touching endpoints do not
// conflict, and zero-length intervals never overlap anything.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// FormatMinutes renders a minute offset back into 24-hour HH:MM form.
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
