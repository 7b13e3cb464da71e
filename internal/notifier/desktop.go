package notifier

import (
	"context"

	"github.com/gen2brain/beeep"
)

// DesktopConfig controls the local backend.
type DesktopConfig struct {
	// Sound plays an audible cue before the OS notification.
	Sound bool
	// Icon is an optional path shown by the OS notification.
	Icon string
}

// Desktop delivers reminders as an audible cue plus an OS notification.
//
// Delivery is best-effort: the platform may refuse (no notification daemon,
// permission not granted, no audio device). The returned error is informative
// only; the pipeline logs and swallows it.
type Desktop struct {
	cfg DesktopConfig
}

func NewDesktop(cfg DesktopConfig) *Desktop {
	return &Desktop{cfg: cfg}
}

func (d *Desktop) Name() string { return "desktop" }

func (d *Desktop) Send(ctx context.Context, r Reminder) error {
	_ = ctx // beeep has no cancellable API; calls are short

	if d.cfg.Sound {
		// The cue is independent of the notification: a missing audio device
		// must not suppress the visual reminder.
		_ = beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
	}
	return beeep.Notify(r.Title, r.Body, d.cfg.Icon)
}
