package planner

import (
	"context"
	"errors"
	"sync"
	"testing"

	logx "weekplan/pkg/logx"
)

// memBackend is an in-memory storage.Store for tests.
type memBackend struct {
	mu    sync.Mutex
	blobs map[string][]byte
	fail  bool
}

func newMemBackend() *memBackend {
	return &memBackend{blobs: map[string][]byte{}}
}

func (m *memBackend) LoadBlob(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("backend down")
	}
	b, ok := m.blobs[key]
	return b, ok, nil
}

func (m *memBackend) SaveBlob(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("backend down")
	}
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBackend) Close() error { return nil }

func TestAddTaskValidation(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, logx.Nop(), nil)
	ctx := context.Background()

	if _, err := s.AddTask(ctx, Monday, "   ", "09:00"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("empty text: err = %v, want ErrEmptyText", err)
	}
	if _, err := s.AddTask(ctx, Monday, "standup", "25:00"); err == nil {
		t.Fatal("expected error for invalid time")
	}
	if got := s.TasksFor(Monday); len(got) != 0 {
		t.Fatalf("rejected adds must not mutate, have %d tasks", len(got))
	}
}

func TestAddTaskDefaults(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, logx.Nop(), nil)

	task, err := s.AddTask(context.Background(), Tuesday, "  review PR  ", "9:5")
	if err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	if task.Text != "review PR" {
		t.Fatalf("Text = %q, want trimmed", task.Text)
	}
	if task.Time != "09:05" {
		t.Fatalf("Time = %q, want normalized 09:05", task.Time)
	}
	if task.IsComplete || !task.AlarmSet {
		t.Fatalf("new task flags = complete:%v armed:%v, want incomplete+armed", task.IsComplete, task.AlarmSet)
	}
	if task.ID <= 0 {
		t.Fatalf("ID = %d, want positive", task.ID)
	}
}

func TestAddTaskIDsUnique(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, logx.Nop(), nil)
	ctx := context.Background()

	seen := map[int64]bool{}
	var prev int64
	for i := 0; i < 50; i++ {
		task, err := s.AddTask(ctx, Friday, "task", "12:00")
		if err != nil {
			t.Fatalf("AddTask error: %v", err)
		}
		if seen[task.ID] {
			t.Fatalf("duplicate id %d", task.ID)
		}
		if task.ID <= prev {
			t.Fatalf("ids not increasing: %d after %d", task.ID, prev)
		}
		seen[task.ID] = true
		prev = task.ID
	}
}

func TestTasksForSortedStable(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, logx.Nop(), nil)
	ctx := context.Background()

	mustAdd := func(text, clock string) Task {
		t.Helper()
		task, err := s.AddTask(ctx, Wednesday, text, clock)
		if err != nil {
			t.Fatalf("AddTask(%q) error: %v", text, err)
		}
		return task
	}

	mustAdd("late", "17:00")
	first := mustAdd("tie first", "09:00")
	mustAdd("early", "07:30")
	second := mustAdd("tie second", "09:00")

	got := s.TasksFor(Wednesday)
	wantOrder := []string{"early", "tie first", "tie second", "late"}
	if len(got) != len(wantOrder) {
		t.Fatalf("len = %d, want %d", len(got), len(wantOrder))
	}
	for i, w := range wantOrder {
		if got[i].Text != w {
			t.Fatalf("pos %d = %q, want %q", i, got[i].Text, w)
		}
	}
	// Same-minute tasks keep insertion order (ids increase with insertion).
	if got[1].ID != first.ID || got[2].ID != second.ID {
		t.Fatal("tie broken: same-minute tasks reordered")
	}
}

func TestTasksForDayIsolation(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, logx.Nop(), nil)
	ctx := context.Background()

	if _, err := s.AddTask(ctx, Monday, "mon only", "08:00"); err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	if got := s.TasksFor(Tuesday); len(got) != 0 {
		t.Fatalf("Tuesday has %d tasks, want 0", len(got))
	}
}

func TestToggleAndDelete(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, logx.Nop(), nil)
	ctx := context.Background()

	task, err := s.AddTask(ctx, Thursday, "water plants", "18:00")
	if err != nil {
		t.Fatalf("AddTask error: %v", err)
	}

	if !s.ToggleComplete(ctx, Thursday, task.ID) {
		t.Fatal("ToggleComplete returned false for existing task")
	}
	if got := s.TasksFor(Thursday)[0]; !got.IsComplete {
		t.Fatal("task not marked complete")
	}
	s.ToggleComplete(ctx, Thursday, task.ID)
	if got := s.TasksFor(Thursday)[0]; got.IsComplete {
		t.Fatal("second toggle did not revert completion")
	}

	if !s.ToggleAlarm(ctx, Thursday, task.ID) {
		t.Fatal("ToggleAlarm returned false for existing task")
	}
	if got := s.TasksFor(Thursday)[0]; got.AlarmSet {
		t.Fatal("alarm not disarmed by toggle")
	}

	// Unknown ids and wrong-day lookups are no-ops.
	if s.ToggleComplete(ctx, Thursday, task.ID+1) {
		t.Fatal("ToggleComplete matched unknown id")
	}
	if s.DeleteTask(ctx, Friday, task.ID) {
		t.Fatal("DeleteTask matched task in wrong day")
	}

	if !s.DeleteTask(ctx, Thursday, task.ID) {
		t.Fatal("DeleteTask returned false for existing task")
	}
	if got := s.TasksFor(Thursday); len(got) != 0 {
		t.Fatalf("task still present after delete: %d", len(got))
	}
	if s.DeleteTask(ctx, Thursday, task.ID) {
		t.Fatal("second delete reported success")
	}
}

func TestDisarmAfterFire(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, logx.Nop(), nil)
	ctx := context.Background()

	task, err := s.AddTask(ctx, Sunday, "call mom", "11:00")
	if err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	if !s.DisarmAfterFire(ctx, Sunday, task.ID) {
		t.Fatal("DisarmAfterFire returned false")
	}
	got := s.TasksFor(Sunday)[0]
	if got.AlarmSet {
		t.Fatal("alarm still armed after fire")
	}
	if got.IsComplete {
		t.Fatal("firing must not complete the task")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Parallel()
	backend := newMemBackend()
	ctx := context.Background()

	s1 := NewStore(backend, logx.Nop(), nil)
	s1.Load(ctx)
	a, err := s1.AddTask(ctx, Monday, "standup", "10:00")
	if err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	if _, err := s1.AddTask(ctx, Saturday, "groceries", "09:30"); err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	s1.ToggleComplete(ctx, Monday, a.ID)

	s2 := NewStore(backend, logx.Nop(), nil)
	s2.Load(ctx)

	mon := s2.TasksFor(Monday)
	if len(mon) != 1 {
		t.Fatalf("Monday len = %d, want 1", len(mon))
	}
	if mon[0].ID != a.ID || mon[0].Text != "standup" || !mon[0].IsComplete {
		t.Fatalf("reloaded task mismatch: %+v", mon[0])
	}
	if got := s2.TasksFor(Saturday); len(got) != 1 || got[0].Text != "groceries" {
		t.Fatalf("Saturday mismatch: %+v", got)
	}

	// New ids keep increasing past the reloaded ones.
	b, err := s2.AddTask(ctx, Monday, "later", "11:00")
	if err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	if b.ID <= a.ID {
		t.Fatalf("id %d not past reloaded max %d", b.ID, a.ID)
	}
}

func TestLoadDegradesGracefully(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing blob", func(t *testing.T) {
		t.Parallel()
		s := NewStore(newMemBackend(), logx.Nop(), nil)
		s.Load(ctx)
		if got := s.TasksFor(Monday); len(got) != 0 {
			t.Fatalf("want empty week, Monday has %d", len(got))
		}
	})

	t.Run("corrupt blob", func(t *testing.T) {
		t.Parallel()
		backend := newMemBackend()
		backend.blobs[BlobKey] = []byte("{not json")
		s := NewStore(backend, logx.Nop(), nil)
		s.Load(ctx)
		if got := s.TasksFor(Monday); len(got) != 0 {
			t.Fatalf("want empty week, Monday has %d", len(got))
		}
		// Store must stay usable after a corrupt load.
		if _, err := s.AddTask(ctx, Monday, "fresh start", "08:00"); err != nil {
			t.Fatalf("AddTask after corrupt load: %v", err)
		}
	})

	t.Run("backend error", func(t *testing.T) {
		t.Parallel()
		backend := newMemBackend()
		backend.fail = true
		s := NewStore(backend, logx.Nop(), nil)
		s.Load(ctx)
		if got := s.TasksFor(Monday); len(got) != 0 {
			t.Fatalf("want empty week, Monday has %d", len(got))
		}
	})
}

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	t.Parallel()
	backend := newMemBackend()
	backend.fail = true
	s := NewStore(backend, logx.Nop(), nil)
	ctx := context.Background()

	task, err := s.AddTask(ctx, Monday, "still here", "08:00")
	if err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	got := s.TasksFor(Monday)
	if len(got) != 1 || got[0].ID != task.ID {
		t.Fatalf("in-memory state lost on save failure: %+v", got)
	}
}
