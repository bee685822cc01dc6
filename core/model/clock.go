package model

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of a service day in minutes.
const MinutesPerDay = 24 * 60

// Clock is a time of day expressed in minutes since midnight. Values past
// MinutesPerDay are allowed for windows crossing midnight; String renders
// them back into wall-clock time.
type Clock int

// ParseClock parses "HH:MM". "24:00" is accepted and maps to MinutesPerDay.
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if hour == 24 && minute == 0 {
		return MinutesPerDay, nil
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock %q: out of range", s)
	}
	return Clock(hour*60 + minute), nil
}

// MustClock is ParseClock for constants; it panics on malformed input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalize folds the clock into [0, MinutesPerDay).
func (c Clock) Normalize() Clock {
	n := int(c) % MinutesPerDay
	if n < 0 {
		n += MinutesPerDay
	}
	return Clock(n)
}

// String renders the clock as HH:MM wall-clock time.
func (c Clock) String() string {
	n := int(c.Normalize())
	return fmt.Sprintf("%02d:%02d", n/60, n%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
