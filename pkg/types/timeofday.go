package types

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a wall-clock time stored as "HH:MM". Service time blocks and
// operating hours compare on minutes since midnight, never on full timestamps.
type TimeOfDay string

// ParseTimeOfDay validates an "HH:MM" value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t := TimeOfDay(strings.TrimSpace(value))
	if _, err := t.minutes(); err != nil {
		return "", err
	}
	return t, nil
}

// Minutes returns minutes since midnight. Invalid values return -1; validate
// at the boundary with ParseTimeOfDay.
func (t TimeOfDay) Minutes() int {
	m, err := t.minutes()
	if err != nil {
		return -1
	}
	return m
}

func (t TimeOfDay) minutes() (int, error) {
	parts := strings.SplitN(string(t), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", string(t))
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", string(t))
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", string(t))
	}
	return hour*60 + minute, nil
}

// Before reports whether t is strictly earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Minutes() < other.Minutes()
}

// AddMinutes returns the clock time delta minutes later, clamped to 23:59.
func (t TimeOfDay) AddMinutes(delta int) TimeOfDay {
	total := t.Minutes() + delta
	if total > 23*60+59 {
		total = 23*60 + 59
	}
	return FromMinutes(total)
}

// FromMinutes builds a TimeOfDay from minutes since midnight.
func FromMinutes(total int) TimeOfDay {
	if total < 0 {
		total = 0
	}
	return TimeOfDay(fmt.Sprintf("%02d:%02d", total/60, total%60))
}

// String implements fmt.Stringer.
func (t TimeOfDay) String() string {
	return string(t)
}

// OverlapsClock reports whether the half-open clock ranges [aStart,aEnd) and
// [bStart,bEnd) intersect: aStart < bEnd && bStart < aEnd.
func OverlapsClock(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart.Minutes() < bEnd.Minutes() && bStart.Minutes() < aEnd.Minutes()
}
