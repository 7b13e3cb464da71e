package config

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Storage selects the durable backend holding the planner blob.
	Storage StorageConfig `json:"storage"`

	// Alarm controls the periodic reminder sweep.
	Alarm AlarmConfig `json:"alarm"`

	// Notify controls reminder delivery (desktop and/or telegram).
	Notify NotifyConfig `json:"notify,omitempty"`

	UI UIConfig `json:"ui,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./weekplan_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// AlarmConfig controls the reminder sweep.
//
// PollInterval is a Go duration string (e.g. "10s"). It must stay under a
// minute so every scheduled minute is observed by at least one sweep.
type AlarmConfig struct {
	Enabled      bool   `json:"enabled"`
	PollInterval string `json:"poll_interval,omitempty"`

	// Sweep timezone (IANA TZ, e.g. "Asia/Jakarta"). Empty means local time.
	Timezone string `json:"timezone,omitempty"`
}

// NotifyConfig controls reminder delivery.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// If the whole section is omitted, the desktop backend defaults to enabled.
type NotifyConfig struct {
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty"`
	DedupWindow string `json:"dedup_window,omitempty"`

	Desktop  DesktopNotifyConfig  `json:"desktop"`
	Telegram TelegramNotifyConfig `json:"telegram,omitempty"`
}

type DesktopNotifyConfig struct {
	Enabled bool `json:"enabled"`
	// Sound plays an audible cue before the OS notification.
	Sound bool   `json:"sound"`
	Icon  string `json:"icon,omitempty"`
}

// TelegramNotifyConfig enables one-way reminder delivery to a chat.
type TelegramNotifyConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

type UIConfig struct {
	// StartDay overrides the initially displayed day ("Monday", ...).
	// Empty means "today".
	StartDay string `json:"start_day,omitempty"`
}
