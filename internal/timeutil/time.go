// Package timeutil implements the pure time arithmetic every other stage
// relies on: parsing "HH:MM" into minute-of-day, and testing two sessions
// for weekday-scoped overlap. Grounded on original_source's
// schedule_algorithm/TimeUtils.{h,cpp} (toMinutes / isOverlap).
package timeutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-adp-api/internal/course"
)

// ErrBadTime is returned when a time string is not "HH:MM" with
// HH in [0,23] and MM in [0,59].
type ErrBadTime struct {
	Raw string
}

func (e *ErrBadTime) Error() string {
	return fmt.Sprintf("invalid time %q: expected HH:MM with HH in 0-23 and MM in 0-59", e.Raw)
}

// ToMinutes parses "HH:MM" into a minute-of-day value in [0, 1440).
func ToMinutes(raw string) (int, error) {
	if len(raw) != 5 || raw[2] != ':' {
		return 0, &ErrBadTime{Raw: raw}
	}
	hourPart, minutePart := raw[0:2], raw[3:5]
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, &ErrBadTime{Raw: raw}
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil {
		return 0, &ErrBadTime{Raw: raw}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, &ErrBadTime{Raw: raw}
	}
	return hour*60 + minute, nil
}

// FormatMinutes renders a minute-of-day back to "HH:MM", the inverse of
// ToMinutes, used by human-facing conflict messages.
func FormatMinutes(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlap reports whether two sessions conflict: same weekday and their
// time windows intersect with non-zero width. Touching at a boundary
// (a.End == b.Start) is not an overlap.
func Overlap(a, b course.Session) bool {
	if a.Weekday != b.Weekday {
		return false
	}
	return a.StartMinutes < b.EndMinutes && b.StartMinutes < a.EndMinutes
}

// GroupsOverlap reports whether any session in a overlaps any session in b.
func GroupsOverlap(a, b []course.Session) bool {
	for _, sa := range a {
		for _, sb := range b {
			if Overlap(sa, sb) {
				return true
			}
		}
	}
	return false
}

// TrimmedEqualFold compares two tokens case-insensitively after trimming
// whitespace. No other package in this module calls it.
func TrimmedEqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
