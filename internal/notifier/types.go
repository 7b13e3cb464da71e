package notifier

import (
	"context"
	"errors"
	"time"

	"weekplan/internal/planner"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Reminder is the effect payload handed to delivery backends when a task's
// scheduled minute arrives.
type Reminder struct {
	Day    planner.Day
	TaskID int64
	Title  string
	Body   string
	At     time.Time
}

// Backend delivers one reminder over one channel (desktop, telegram, ...).
// Errors are logged and swallowed by the pipeline; a backend must never be
// able to break the sweep.
type Backend interface {
	Name() string
	Send(ctx context.Context, r Reminder) error
}

// Config controls the delivery pipeline.
type Config struct {
	RatePerSec  int
	QueueSize   int
	DedupWindow time.Duration
}
