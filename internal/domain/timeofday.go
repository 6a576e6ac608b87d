package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// TimeOfDay is a wall-clock time on the booking date, stored as minutes since midnight.
type TimeOfDay int

const EndOfDay TimeOfDay = 24 * 60

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS"; seconds must be zero.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 2:
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("%w: invalid time %q", ErrValidation, s)
		}
	case 3:
		if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
			return 0, fmt.Errorf("%w: invalid time %q", ErrValidation, s)
		}
	default:
		return 0, fmt.Errorf("%w: invalid time %q", ErrValidation, s)
	}
	if h < 0 || m < 0 || m > 59 || sec != 0 {
		return 0, fmt.Errorf("%w: invalid time %q", ErrValidation, s)
	}
	t := NewTimeOfDay(h, m)
	if t > EndOfDay {
		return 0, fmt.Errorf("%w: invalid time %q", ErrValidation, s)
	}
	return t, nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Minutes returns the length of [t, end).
func (t TimeOfDay) Minutes(end TimeOfDay) int {
	return int(end - t)
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
	case []byte:
		return t.Scan(string(v))
	case time.Time:
		*t = NewTimeOfDay(v.Hour(), v.Minute())
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	return nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Overlaps implements half-open interval overlap: [s, e) and [s2, e2) share time iff s < e2 && e > s2.
func Overlaps(s, e, s2, e2 TimeOfDay) bool {
	return s < e2 && e > s2
}

// ParseDate parses a calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return d, nil
}
