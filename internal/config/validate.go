package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks cross-field constraints that the strict decoder cannot.
// It is used both at startup and as the hot-reload validator.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "file", "sqlite", "sqlite3", "none":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return err
	}

	poll, err := ParseDurationOrDefault("alarm.poll_interval", cfg.Alarm.PollInterval, 10*time.Second)
	if err != nil {
		return err
	}
	// The sweep compares against a minute-truncated clock; polling slower than
	// a minute would skip scheduled minutes entirely.
	if poll >= time.Minute {
		return fmt.Errorf("alarm.poll_interval: must be under 1m, got %s", poll)
	}

	if tz := strings.TrimSpace(cfg.Alarm.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("alarm.timezone: %w", err)
		}
	}

	if _, err := ParseDurationField("notify.dedup_window", cfg.Notify.DedupWindow); err != nil {
		return err
	}
	if cfg.Notify.Telegram.Enabled {
		if strings.TrimSpace(cfg.Notify.Telegram.Token) == "" {
			return fmt.Errorf("notify.telegram: token is required when enabled")
		}
		if cfg.Notify.Telegram.ChatID == 0 {
			return fmt.Errorf("notify.telegram: chat_id is required when enabled")
		}
	}

	if day := strings.TrimSpace(cfg.UI.StartDay); day != "" {
		ok := false
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if strings.EqualFold(day, wd.String()) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("ui.start_day: unknown day %q", day)
		}
	}

	return nil
}
