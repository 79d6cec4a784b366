package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date, stored as the offset from
// midnight. Valid values are in [0, 24h).
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from hour, minute and second.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second)
}

// TimeOfDayOf returns the wall-clock part of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return 0, fmt.Errorf("%w: invalid time of day %q", ErrValidation, s)
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration { return time.Duration(t) }

// String formats t as "15:04", or "15:04:05" when seconds are present.
func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
