package app

import (
	"time"

	"weekplan/internal/alarm"
	"weekplan/internal/config"
	"weekplan/internal/notifier"
	"weekplan/internal/planner"
	"weekplan/internal/storage"
)

// mapStorageConfig translates the config section into the storage driver
// config. The bool is false when storage is disabled (memory-only session).
func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil {
		return storage.Config{}, false, nil
	}
	driver := cfg.Storage.Driver
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{
		Driver:      driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, true, nil
}

func mapAlarmConfig(cfg *config.Config) (alarm.Config, error) {
	if cfg == nil {
		return alarm.Config{}, nil
	}
	poll, err := config.ParseDurationOrDefault("alarm.poll_interval", cfg.Alarm.PollInterval, 10*time.Second)
	if err != nil {
		return alarm.Config{}, err
	}
	return alarm.Config{
		Enabled:      cfg.Alarm.Enabled,
		PollInterval: poll,
		Timezone:     cfg.Alarm.Timezone,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	if cfg == nil {
		return notifier.Config{}, nil
	}
	dedup, err := config.ParseDurationOrDefault("notify.dedup_window", cfg.Notify.DedupWindow, time.Minute)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		RatePerSec:  cfg.Notify.RatePerSec,
		QueueSize:   cfg.Notify.QueueSize,
		DedupWindow: dedup,
	}, nil
}

// desktopEnabled honors the documented default: an omitted notify section
// still gets desktop reminders.
func desktopEnabled(cfg *config.Config) bool {
	if cfg == nil {
		return true
	}
	if cfg.Notify == (config.NotifyConfig{}) {
		return true
	}
	return cfg.Notify.Desktop.Enabled
}

// startDay resolves the initially displayed day: the configured override, or
// today.
func startDay(cfg *config.Config, now time.Time) planner.Day {
	if cfg != nil {
		if d, ok := planner.ParseDay(cfg.UI.StartDay); ok {
			return d
		}
	}
	return planner.DayOf(now)
}
