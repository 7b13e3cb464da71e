package planner

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is one of the seven fixed buckets partitioning tasks.
type Day string

const (
	Sunday    Day = "Sunday"
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
)

// Days returns the seven buckets in week order (Sunday first), matching
// time.Weekday numbering.
func Days() []Day {
	return []Day{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
}

// DayOf maps a wall-clock instant to its bucket.
func DayOf(t time.Time) Day {
	return Day(t.Weekday().String())
}

// ParseDay resolves a day name case-insensitively. Three-letter
// abbreviations ("mon", "Tue") are accepted, mirroring the tab labels.
func ParseDay(s string) (Day, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return "", false
	}
	for _, d := range Days() {
		name := string(d)
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return d, true
		}
	}
	return "", false
}

// Task is a single planned item within a day bucket.
//
// Time is a zero-padded 24-hour "HH:MM" string; lexicographic comparison of
// this form is chronological comparison, which both the display sort and the
// sweep rely on.
type Task struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	Time       string `json:"time"`
	IsComplete bool   `json:"isComplete"`
	AlarmSet   bool   `json:"alarmSet"`
}

// ParseClock validates a time-of-day string and normalizes it to zero-padded
// 24-hour "HH:MM" ("9:5" becomes "09:05").
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return "", fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return "", fmt.Errorf("invalid minute in %q", s)
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// Clock formats an instant as the minute-truncated "HH:MM" the sweep
// compares against.
func Clock(t time.Time) string {
	return t.Format("15:04")
}

// FormatClock12 renders a 24-hour "HH:MM" in 12-hour form for display
// ("13:05" -> "1:05 PM", "00:30" -> "12:30 AM").
func FormatClock12(hhmm string) string {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return hhmm
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return hhmm
	}
	h %= 24
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%s %s", h12, parts[1], suffix)
}
