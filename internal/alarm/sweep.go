package alarm

import (
	"context"
	"runtime/debug"
	"time"

	"weekplan/internal/eventbus"
	"weekplan/internal/notifier"
	"weekplan/internal/planner"
	logx "weekplan/pkg/logx"
)

// reminderTitle is the fixed heading on every reminder; the task text is the body.
const reminderTitle = "Task Reminder!"

// Sweep runs one tick against the injected clock and returns the number of
// tasks fired.
func (s *Service) Sweep(ctx context.Context) int {
	return s.SweepAt(ctx, s.now())
}

// SweepAt runs one tick at the given instant.
//
// Matching is pure: derive the day bucket and the minute-truncated HH:MM
// from now, scan every task in that bucket, and collect the armed,
// incomplete tasks whose time equals the truncated clock. Effects (sink +
// disarm + event) happen per matched task afterwards, each isolated so one
// failure cannot abort the rest of the sweep.
func (s *Service) SweepAt(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	loc := s.loc
	s.mu.Unlock()
	if loc != nil {
		now = now.In(loc)
	}

	today := planner.DayOf(now)
	nowClock := planner.Clock(now)

	fired := 0
	for _, t := range s.store.Snapshot(today) {
		if !t.AlarmSet || t.IsComplete || t.Time != nowClock {
			continue
		}
		s.fire(ctx, today, t, now)
		fired++
	}
	if fired > 0 {
		s.log.Info("alarms fired",
			logx.String("day", string(today)),
			logx.String("clock", nowClock),
			logx.Int("count", fired))
	}
	return fired
}

// fire delivers the reminder and disarms the task. Sink failures (and even
// panics) are contained here; the sweep loop never terminates because of a
// per-task failure.
func (s *Service) fire(ctx context.Context, day planner.Day, t planner.Task, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic firing reminder",
				logx.Int64("task_id", t.ID),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	if s.sink != nil {
		r := notifier.Reminder{
			Day:    day,
			TaskID: t.ID,
			Title:  reminderTitle,
			Body:   t.Text,
			At:     now,
		}
		if err := s.sink.Notify(ctx, r); err != nil {
			// Best-effort delivery; the occurrence is still consumed below.
			s.log.Debug("reminder enqueue failed", logx.Int64("task_id", t.ID), logx.Err(err))
		}
	}

	s.store.DisarmAfterFire(ctx, day, t.ID)

	if s.bus != nil {
		t.AlarmSet = false
		s.bus.Publish(eventbus.Event{
			Type: eventbus.AlarmFired,
			Time: now,
			Data: planner.TaskEvent{Day: day, Task: t},
		})
	}
}
