package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with minute precision stored as minutes since midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

// NewTimeOfDay builds a TimeOfDay from hour and minute components.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS". Seconds must be zero.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	value := strings.TrimSpace(raw)
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	hour, err := parseClockPart(parts[0], 23)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}
	minute, err := parseClockPart(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}
	if len(parts) == 3 {
		second, err := parseClockPart(parts[2], 59)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", raw, err)
		}
		if second != 0 {
			return 0, fmt.Errorf("invalid time %q: seconds are not supported", raw)
		}
	}
	return NewTimeOfDay(hour, minute), nil
}

// MustParseTimeOfDay panics on malformed input. Intended for tests and constants.
func MustParseTimeOfDay(raw string) TimeOfDay {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func parseClockPart(part string, max int) (int, error) {
	if len(part) != 2 {
		return 0, fmt.Errorf("component %q must have two digits", part)
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, fmt.Errorf("component %q is not numeric", part)
	}
	if n < 0 || n > max {
		return 0, fmt.Errorf("component %q out of range", part)
	}
	return n, nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats the value as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Valid reports whether the value lies within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// On anchors the time of day onto the given calendar date in loc.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// MarshalJSON encodes the value as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "HH:MM" or "HH:MM:SS".
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the value as a Postgres TIME literal.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

// Scan reads Postgres TIME values.
func (t *TimeOfDay) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = 0
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	case time.Time:
		*t = NewTimeOfDay(v.Hour(), v.Minute())
		return nil
	default:
		return fmt.Errorf("unsupported type %T for TimeOfDay", value)
	}
}

func (t *TimeOfDay) scanString(raw string) error {
	// Postgres may append fractional seconds or a zone offset.
	value := raw
	if idx := strings.IndexAny(value, ".+-"); idx > 0 {
		value = value[:idx]
	}
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return fmt.Errorf("scan time of day %q", raw)
	}
	parsed, err := ParseTimeOfDay(parts[0] + ":" + parts[1])
	if err != nil {
		return fmt.Errorf("scan time of day: %w", err)
	}
	*t = parsed
	return nil
}

// TimePtr returns a pointer to the value. Handy for optional exception times.
func TimePtr(t TimeOfDay) *TimeOfDay {
	return &t
}

// EqualTimePtr compares two optional times.
func EqualTimePtr(a, b *TimeOfDay) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
