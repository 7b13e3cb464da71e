package notifier

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "weekplan/pkg/logx"
)

// Service is the ReminderSink: a small async pipeline (queue + worker +
// rate limit + dedup) in front of the delivery backends.
//
// The caller (the alarm sweep) never blocks on delivery and never sees a
// delivery error; the only error surface is queue-full/stopped at enqueue
// time, which the sweep ignores.
type Service struct {
	mu sync.Mutex

	log      logx.Logger
	backends []Backend

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	queue     chan Reminder

	// sendWG counts Notify calls between capturing the queue and finishing
	// the enqueue, so Stop never closes a channel a sender still holds.
	sendWG sync.WaitGroup

	// workerDone is closed when the current run's worker exits. Start waits
	// on the previous run's channel so two runs never interleave.
	workerDone chan struct{}

	runCtx    context.Context
	runCancel context.CancelFunc

	// In-memory dedup cache: key -> suppress until
	dmu   sync.Mutex
	dedup map[string]time.Time
}

func New(cfg Config, backends []Backend, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log, backends: backends, dedup: map[string]time.Time{}}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	// Defaults
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.DedupWindow < 0 {
		cfg.DedupWindow = 0
	}

	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.queue != nil {
		// already running
		s.mu.Unlock()
		return
	}
	prev := s.workerDone
	s.mu.Unlock()

	// A Stop abandoned at its deadline may leave the previous worker still
	// draining its queue; wait for it to exit before starting a new run.
	if prev != nil {
		<-prev
	}

	s.mu.Lock()
	if s.queue != nil {
		s.mu.Unlock()
		return
	}
	q := make(chan Reminder, s.cfg.QueueSize)
	done := make(chan struct{})
	runCtx, runCancel := context.WithCancel(ctx)
	s.queue = q
	s.accepting = true
	s.workerDone = done
	s.runCtx = runCtx
	s.runCancel = runCancel
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in notifier worker", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		s.workerLoop(runCtx, q)
	}()
}

// Stop stops intake and drains the queue best-effort until ctx deadline.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	done := s.workerDone
	cancel := s.runCancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	// Block new enqueues. Notify calls already past the lock still hold
	// sendWG; queue is cleared so later calls see ErrStopped.
	s.accepting = false
	s.queue = nil
	s.runCancel = nil
	s.runCtx = nil
	s.mu.Unlock()

	// Wait for in-flight enqueues (non-blocking sends, so this is quick),
	// then close the queue so the worker can drain and exit.
	s.sendWG.Wait()
	close(q)

	select {
	case <-ctx.Done():
		// Deadline hit: abandon the drain. The worker keeps emptying the old
		// queue until runCtx cancellation; Start waits on workerDone before
		// reusing the pipeline.
		if cancel != nil {
			cancel()
		}
	case <-done:
		if cancel != nil {
			cancel()
		}
	}
}

// Notify enqueues a reminder for async delivery. It never blocks beyond a
// channel send attempt.
func (s *Service) Notify(ctx context.Context, r Reminder) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	window := s.cfg.DedupWindow
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	// Suppress duplicate deliveries for the same task occurrence. The sweep's
	// disarm already guarantees once-per-minute; this guards the delivery
	// channel itself (e.g. a task re-armed within the same minute).
	if window > 0 {
		if !s.dedupAllow(dedupKey(r), window) {
			s.log.Debug("reminder deduped", logx.Int64("task_id", r.TaskID), logx.String("day", string(r.Day)))
			return nil
		}
	}

	select {
	case q <- r:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) workerLoop(runCtx context.Context, q chan Reminder) {
	for r := range q {
		if runCtx != nil {
			select {
			case <-runCtx.Done():
				return
			default:
			}
		}
		s.deliver(runCtx, r)
	}
}

// deliver pushes one reminder through every backend. Each backend failure is
// logged and swallowed; one broken channel must not silence the others.
func (s *Service) deliver(runCtx context.Context, r Reminder) {
	s.mu.Lock()
	lim := s.limiter
	backends := s.backends
	s.mu.Unlock()

	if lim != nil {
		wctx := runCtx
		if wctx == nil {
			wctx = context.Background()
		}
		if err := lim.Wait(wctx); err != nil {
			return
		}
	}

	for _, b := range backends {
		if b == nil {
			continue
		}
		callCtx := runCtx
		if callCtx == nil {
			callCtx = context.Background()
		}
		callCtx, cancel := context.WithTimeout(callCtx, 10*time.Second)
		err := func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("panic: %v", p)
				}
			}()
			return b.Send(callCtx, r)
		}()
		cancel()
		if err != nil {
			s.log.Warn("reminder delivery failed",
				logx.String("backend", b.Name()),
				logx.Int64("task_id", r.TaskID),
				logx.Err(err))
			continue
		}
		s.log.Debug("reminder delivered",
			logx.String("backend", b.Name()),
			logx.Int64("task_id", r.TaskID))
	}
}

// dedupKey identifies one scheduled occurrence: day + task + minute.
func dedupKey(r Reminder) string {
	return fmt.Sprintf("%s|%d|%s", r.Day, r.TaskID, r.At.Format("15:04"))
}

func (s *Service) dedupAllow(key string, window time.Duration) bool {
	now := time.Now()

	s.dmu.Lock()
	defer s.dmu.Unlock()
	if s.dedup == nil {
		s.dedup = map[string]time.Time{}
	}
	if until, ok := s.dedup[key]; ok && now.Before(until) {
		return false
	}
	s.dedup[key] = now.Add(window)

	// Prune expired entries while we're here.
	for k, until := range s.dedup {
		if !now.Before(until) {
			delete(s.dedup, k)
		}
	}
	return true
}
