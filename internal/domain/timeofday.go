package domain

import (
	"fmt"
	"time"
)

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q: want HH:MM or HH:MM:SS", s)
}

// TimeOfDayOf returns the offset of t from midnight in t's own location.
func TimeOfDayOf(t time.Time) time.Duration {
	y, m, d := t.Date()
	return t.Sub(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}

// AtTimeOfDay returns the instant on day's calendar date, in loc, offset by tod from midnight.
func AtTimeOfDay(day time.Time, tod time.Duration, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(tod)
}

// FormatTimeOfDay renders an offset from midnight as "HH:MM".
func FormatTimeOfDay(tod time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(tod.Hours()), int(tod.Minutes())%60)
}
