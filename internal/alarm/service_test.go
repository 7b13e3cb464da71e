package alarm

import (
	"context"
	"sync"
	"testing"
	"time"

	"weekplan/internal/planner"
	logx "weekplan/pkg/logx"
)

// A reconfigure or shutdown landing while a tick is in flight must not
// block forever: the tick takes the service mutex, so the lifecycle paths
// have to wait for it with the mutex released.
func TestApplyAndStopWithTickInFlight(t *testing.T) {
	t.Parallel()
	store := planner.NewStore(nil, logx.Nop(), nil)
	sink := &fakeSink{}
	svc := New(Config{Enabled: true, PollInterval: time.Second}, store, sink, logx.Nop(), nil)

	// The injected clock doubles as a tick gate: the first tick parks in
	// now() until released, holding the cron job open.
	inTick := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	svc.now = func() time.Time {
		once.Do(func() { close(inTick) })
		<-release
		return monday0900
	}

	svc.Start(context.Background())
	select {
	case <-inTick:
	case <-time.After(5 * time.Second):
		t.Fatal("no tick observed")
	}

	applied := make(chan struct{})
	go func() {
		svc.Apply(Config{Enabled: true, PollInterval: 30 * time.Second})
		close(applied)
	}()

	// Apply must be parked waiting for the tick, not finished against it.
	select {
	case <-applied:
		t.Fatal("Apply returned while a tick was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-applied:
	case <-time.After(5 * time.Second):
		t.Fatal("Apply blocked behind an in-flight tick")
	}

	stopped := make(chan struct{})
	go func() {
		svc.Stop(context.Background())
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked")
	}
}

func TestApplyNoChangeKeepsTrigger(t *testing.T) {
	t.Parallel()
	store := planner.NewStore(nil, logx.Nop(), nil)
	svc := New(Config{Enabled: true, PollInterval: 30 * time.Second}, store, &fakeSink{}, logx.Nop(), nil)

	svc.Start(context.Background())
	defer svc.Stop(context.Background())

	svc.mu.Lock()
	before := svc.c
	svc.mu.Unlock()
	if before == nil {
		t.Fatal("trigger not started")
	}
	svc.Apply(Config{Enabled: true, PollInterval: 30 * time.Second})
	svc.mu.Lock()
	after := svc.c
	svc.mu.Unlock()
	if after != before {
		t.Fatal("unchanged config restarted the trigger")
	}
}

func TestApplyDisableStopsTrigger(t *testing.T) {
	t.Parallel()
	store := planner.NewStore(nil, logx.Nop(), nil)
	svc := New(Config{Enabled: true, PollInterval: 30 * time.Second}, store, &fakeSink{}, logx.Nop(), nil)

	svc.Start(context.Background())
	svc.Apply(Config{Enabled: false})

	if svc.Enabled() {
		t.Fatal("Enabled still true after disable")
	}
	svc.mu.Lock()
	running := svc.c != nil
	svc.mu.Unlock()
	if running {
		t.Fatal("trigger still running after disable")
	}

	// Re-enable picks the trigger back up.
	svc.Apply(Config{Enabled: true, PollInterval: 30 * time.Second})
	svc.mu.Lock()
	running = svc.c != nil
	svc.mu.Unlock()
	if !running {
		t.Fatal("trigger not restarted after re-enable")
	}
	svc.Stop(context.Background())
}

func TestStopIdempotent(t *testing.T) {
	t.Parallel()
	store := planner.NewStore(nil, logx.Nop(), nil)
	svc := New(Config{Enabled: true, PollInterval: 30 * time.Second}, store, &fakeSink{}, logx.Nop(), nil)

	svc.Start(context.Background())
	svc.Stop(context.Background())
	svc.Stop(context.Background()) // second stop is a no-op
}
