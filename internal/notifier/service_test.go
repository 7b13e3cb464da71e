package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"weekplan/internal/planner"
	logx "weekplan/pkg/logx"
)

type recordBackend struct {
	name string

	mu    sync.Mutex
	got   []Reminder
	err   error
	panic bool
}

func (b *recordBackend) Name() string { return b.name }

func (b *recordBackend) Send(_ context.Context, r Reminder) error {
	b.mu.Lock()
	b.got = append(b.got, r)
	b.mu.Unlock()
	if b.panic {
		panic("backend exploded")
	}
	return b.err
}

func (b *recordBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.got)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func testReminder(id int64, at time.Time) Reminder {
	return Reminder{
		Day:    planner.Monday,
		TaskID: id,
		Title:  "Task Reminder!",
		Body:   "standup",
		At:     at,
	}
}

func TestNotifyDelivers(t *testing.T) {
	t.Parallel()
	b := &recordBackend{name: "rec"}
	s := New(Config{RatePerSec: 100}, []Backend{b}, logx.Nop())
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), testReminder(1, time.Now())); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	waitFor(t, func() bool { return b.count() == 1 })
}

func TestNotifyBeforeStart(t *testing.T) {
	t.Parallel()
	s := New(Config{}, nil, logx.Nop())
	if err := s.Notify(context.Background(), testReminder(1, time.Now())); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestNotifyAfterStop(t *testing.T) {
	t.Parallel()
	s := New(Config{}, nil, logx.Nop())
	s.Start(context.Background())
	s.Stop(context.Background())
	if err := s.Notify(context.Background(), testReminder(1, time.Now())); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestBackendFailureDoesNotSilenceOthers(t *testing.T) {
	t.Parallel()
	bad := &recordBackend{name: "bad", err: errors.New("no display")}
	good := &recordBackend{name: "good"}
	s := New(Config{RatePerSec: 100}, []Backend{bad, good}, logx.Nop())
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), testReminder(1, time.Now())); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	waitFor(t, func() bool { return good.count() == 1 && bad.count() == 1 })
}

func TestBackendPanicContained(t *testing.T) {
	t.Parallel()
	boom := &recordBackend{name: "boom", panic: true}
	good := &recordBackend{name: "good"}
	s := New(Config{RatePerSec: 100}, []Backend{boom, good}, logx.Nop())
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), testReminder(1, time.Now())); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	waitFor(t, func() bool { return good.count() == 1 })

	// Worker survived the panic: a second reminder still flows.
	if err := s.Notify(context.Background(), testReminder(2, time.Now())); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	waitFor(t, func() bool { return good.count() == 2 })
}

func TestDedupSuppressesSameOccurrence(t *testing.T) {
	t.Parallel()
	b := &recordBackend{name: "rec"}
	s := New(Config{RatePerSec: 100, DedupWindow: time.Minute}, []Backend{b}, logx.Nop())
	s.Start(context.Background())
	defer s.Stop(context.Background())

	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	r := testReminder(42, at)
	if err := s.Notify(context.Background(), r); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	// Same occurrence (same day/task/minute) is swallowed without error.
	if err := s.Notify(context.Background(), r); err != nil {
		t.Fatalf("duplicate Notify error: %v", err)
	}
	// A different minute is a different occurrence.
	if err := s.Notify(context.Background(), testReminder(42, at.Add(time.Minute))); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	waitFor(t, func() bool { return b.count() == 2 })
	time.Sleep(50 * time.Millisecond)
	if b.count() != 2 {
		t.Fatalf("deliveries = %d, want 2", b.count())
	}
}

func TestNotifyQueueFull(t *testing.T) {
	t.Parallel()
	// A blocked backend keeps the worker busy so the queue fills up.
	block := make(chan struct{})
	blocker := backendFunc(func(ctx context.Context, _ Reminder) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	})
	s := New(Config{RatePerSec: 1000, QueueSize: 1}, []Backend{blocker}, logx.Nop())
	s.Start(context.Background())
	t.Cleanup(func() { s.Stop(context.Background()) })
	t.Cleanup(func() { close(block) }) // unblock the worker before Stop drains

	ctx := context.Background()
	// First reminder occupies the worker, second fills the queue; the id
	// varies so dedup never interferes.
	var sawFull bool
	for i := int64(0); i < 10; i++ {
		if err := s.Notify(ctx, testReminder(i, time.Now())); errors.Is(err, ErrQueueFull) {
			sawFull = true
			break
		}
	}
	if !sawFull {
		t.Fatal("never observed ErrQueueFull with a blocked worker")
	}
}

// Cycling the pipeline while senders hammer Notify exercises the
// stop-side handshakes: in-flight enqueues must finish before the queue
// closes, and a new run must not start until the previous worker exited.
func TestStopStartCycleUnderConcurrentNotify(t *testing.T) {
	t.Parallel()
	b := &recordBackend{name: "rec"}
	s := New(Config{RatePerSec: 1000, QueueSize: 4}, []Backend{b}, logx.Nop())
	ctx := context.Background()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := int64(0); ; j++ {
				select {
				case <-stop:
					return
				default:
				}
				// ErrStopped/ErrQueueFull are expected mid-cycle; the test
				// only cares that no send ever panics.
				_ = s.Notify(ctx, testReminder(int64(i)*1_000_000+j, time.Now()))
			}
		}()
	}

	for i := 0; i < 25; i++ {
		s.Start(ctx)
		time.Sleep(time.Millisecond)
		s.Stop(ctx)
	}

	close(stop)
	wg.Wait()
}

func TestRestartAfterStopDelivers(t *testing.T) {
	t.Parallel()
	b := &recordBackend{name: "rec"}
	s := New(Config{RatePerSec: 100}, []Backend{b}, logx.Nop())
	ctx := context.Background()

	s.Start(ctx)
	if err := s.Notify(ctx, testReminder(1, time.Now())); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	s.Stop(ctx)

	s.Start(ctx)
	defer s.Stop(ctx)
	if err := s.Notify(ctx, testReminder(2, time.Now())); err != nil {
		t.Fatalf("Notify after restart error: %v", err)
	}
	waitFor(t, func() bool { return b.count() == 2 })
}

func TestNotifyCanceledContext(t *testing.T) {
	t.Parallel()
	s := New(Config{}, nil, logx.Nop())
	s.Start(context.Background())
	defer s.Stop(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Notify(ctx, testReminder(1, time.Now())); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// backendFunc adapts a function to the Backend interface for tests.
type backendFunc func(ctx context.Context, r Reminder) error

func (f backendFunc) Name() string { return "func" }

func (f backendFunc) Send(ctx context.Context, r Reminder) error { return f(ctx, r) }
