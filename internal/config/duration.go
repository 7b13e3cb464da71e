package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration-valued settings (alarm.poll_interval, notify.dedup_window,
// storage.busy_timeout) are carried as Go duration strings like "10s" or
// "1m30s" so they survive the JSON/YAML round-trip unchanged.

// ParseDurationField parses one such field. Empty means "unset" and yields
// zero; the caller decides what unset means. Negative values are rejected
// because none of the planner's intervals can run backwards. path names the
// field in error messages, e.g. "alarm.poll_interval".
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with an unset fallback: an
// empty or zero field becomes def (the sweep interval defaults to 10s this
// way). Invalid input still errors rather than silently defaulting.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
