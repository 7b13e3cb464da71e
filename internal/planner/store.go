package planner

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"weekplan/internal/eventbus"
	"weekplan/internal/storage"
	logx "weekplan/pkg/logx"
)

// BlobKey is the single storage key holding the serialized week.
const BlobKey = "planner.tasks"

var ErrEmptyText = errors.New("task text is empty")

// TaskEvent is the payload for task.* and alarm.fired bus events.
type TaskEvent struct {
	Day  Day
	Task Task
}

// Store owns the in-memory task collection, keyed by day of week.
//
// It is the sole mutator of the collection: the controller and the alarm
// sweep both go through its methods, never through direct field access.
// Every mutation rewrites the whole blob to the backend; a failed write is
// logged and the in-memory state stays authoritative for the session.
type Store struct {
	log     logx.Logger
	backend storage.Store // nil means memory-only
	bus     eventbus.Bus

	mu     sync.Mutex
	tasks  map[Day][]Task
	lastID int64
}

// NewStore creates an empty store. Call Load to pull persisted state.
// backend may be nil (memory-only); bus may be nil (no events).
func NewStore(backend storage.Store, log logx.Logger, bus eventbus.Bus) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{log: log, backend: backend, bus: bus}
	s.tasks = emptyWeek()
	return s
}

func emptyWeek() map[Day][]Task {
	m := make(map[Day][]Task, 7)
	for _, d := range Days() {
		m[d] = nil
	}
	return m
}

// Load initializes the collection from the backend. A missing or corrupt
// blob degrades to an empty week; Load never fails the caller.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = emptyWeek()
	if s.backend == nil {
		return
	}

	b, ok, err := s.backend.LoadBlob(ctx, BlobKey)
	if err != nil {
		s.log.Warn("task blob load failed; starting empty", logx.Err(err))
		return
	}
	if !ok {
		s.log.Debug("no task blob; starting empty")
		return
	}

	var m map[Day][]Task
	if err := json.Unmarshal(b, &m); err != nil {
		s.log.Warn("task blob corrupt; starting empty", logx.Err(err))
		return
	}
	count := 0
	for _, d := range Days() {
		s.tasks[d] = m[d]
		count += len(m[d])
		for _, t := range m[d] {
			if t.ID > s.lastID {
				s.lastID = t.ID
			}
		}
	}
	s.log.Info("tasks loaded", logx.Int("count", count))
}

// saveLocked rewrites the whole blob. Callers hold s.mu.
func (s *Store) saveLocked(ctx context.Context) {
	if s.backend == nil {
		return
	}
	b, err := json.Marshal(s.tasks)
	if err != nil {
		s.log.Error("task blob marshal failed", logx.Err(err))
		return
	}
	if err := s.backend.SaveBlob(ctx, BlobKey, b); err != nil {
		// In-memory state stays authoritative; this change is lost on restart.
		s.log.Warn("task blob save failed", logx.Err(err))
	}
}

// nextIDLocked issues a creation-time ID in Unix milliseconds, bumped past
// the previous one so two adds in the same millisecond stay distinct.
func (s *Store) nextIDLocked() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// AddTask appends a new armed, incomplete task to day's bucket and persists.
// Empty text or an unparseable time is rejected.
func (s *Store) AddTask(ctx context.Context, day Day, text, clock string) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, ErrEmptyText
	}
	hhmm, err := ParseClock(clock)
	if err != nil {
		return Task{}, err
	}

	s.mu.Lock()
	t := Task{
		ID:         s.nextIDLocked(),
		Text:       text,
		Time:       hhmm,
		IsComplete: false,
		AlarmSet:   true,
	}
	s.tasks[day] = append(s.tasks[day], t)
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish(eventbus.TaskAdded, day, t)
	return t, nil
}

// DeleteTask removes the task with the given id from day's bucket.
// It reports whether a task was removed; a missing id is a no-op.
func (s *Store) DeleteTask(ctx context.Context, day Day, id int64) bool {
	s.mu.Lock()
	list := s.tasks[day]
	idx := -1
	for i := range list {
		if list[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	removed := list[idx]
	s.tasks[day] = append(list[:idx], list[idx+1:]...)
	s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish(eventbus.TaskDeleted, day, removed)
	return true
}

// ToggleComplete flips the completion flag on the matching task.
func (s *Store) ToggleComplete(ctx context.Context, day Day, id int64) bool {
	return s.mutate(ctx, day, id, eventbus.TaskToggled, func(t *Task) {
		t.IsComplete = !t.IsComplete
	})
}

// ToggleAlarm flips the armed flag on the matching task. This is also how a
// fired task is re-armed by the user.
func (s *Store) ToggleAlarm(ctx context.Context, day Day, id int64) bool {
	return s.mutate(ctx, day, id, eventbus.TaskToggled, func(t *Task) {
		t.AlarmSet = !t.AlarmSet
	})
}

// DisarmAfterFire marks a task's alarm as spent. Used exclusively by the
// alarm sweep; this is what keeps a task from re-firing on the next tick
// within the same matching minute.
func (s *Store) DisarmAfterFire(ctx context.Context, day Day, id int64) bool {
	return s.mutate(ctx, day, id, "", func(t *Task) {
		t.AlarmSet = false
	})
}

func (s *Store) mutate(ctx context.Context, day Day, id int64, event string, fn func(*Task)) bool {
	s.mu.Lock()
	list := s.tasks[day]
	var updated *Task
	for i := range list {
		if list[i].ID == id {
			fn(&list[i])
			cp := list[i]
			updated = &cp
			break
		}
	}
	if updated == nil {
		s.mu.Unlock()
		return false
	}
	s.saveLocked(ctx)
	s.mu.Unlock()

	if event != "" {
		s.publish(event, day, *updated)
	}
	return true
}

// TasksFor returns day's tasks sorted ascending by time. The sort is stable,
// so same-minute tasks keep insertion order. The returned slice is a copy.
func (s *Store) TasksFor(day Day) []Task {
	s.mu.Lock()
	out := append([]Task(nil), s.tasks[day]...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out
}

// Snapshot returns day's tasks in insertion order (the sweep checks every
// task, so sorted order would be wasted work).
func (s *Store) Snapshot(day Day) []Task {
	s.mu.Lock()
	out := append([]Task(nil), s.tasks[day]...)
	s.mu.Unlock()
	return out
}

func (s *Store) publish(typ string, day Day, t Task) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: TaskEvent{Day: day, Task: t}})
}
