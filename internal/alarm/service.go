package alarm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"weekplan/internal/eventbus"
	"weekplan/internal/notifier"
	"weekplan/internal/planner"
	logx "weekplan/pkg/logx"
)

type Config struct {
	Enabled      bool
	PollInterval time.Duration
	Timezone     string // IANA TZ, e.g. "Asia/Jakarta"; empty means local
}

// Sink receives the reminder effect for a fired task.
// *notifier.Service satisfies this; tests use a fake.
type Sink interface {
	Notify(ctx context.Context, r notifier.Reminder) error
}

type Service struct {
	mu sync.Mutex

	log   logx.Logger
	cfg   Config
	store *planner.Store
	sink  Sink
	bus   eventbus.Bus

	// now is the injected clock; sweeps read it once per tick so tests can
	// simulate arbitrary instants deterministically.
	now func() time.Time

	parser cron.Parser
	c      *cron.Cron
	loc    *time.Location
}

func New(cfg Config, store *planner.Store, sink Sink, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		sink:   sink,
		log:    log,
		bus:    bus,
		now:    time.Now,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Enabled reports the current config flag. (Thread-safe; Apply() may run concurrently.)
func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	changed := cfg.PollInterval != s.cfg.PollInterval ||
		strings.TrimSpace(cfg.Timezone) != strings.TrimSpace(s.cfg.Timezone) ||
		cfg.Enabled != s.cfg.Enabled
	s.cfg = cfg

	if !changed || (s.c == nil && !cfg.Enabled) {
		s.mu.Unlock()
		return
	}
	old := s.c
	s.c = nil
	s.mu.Unlock()

	// Wait for a tick in flight without holding s.mu: the sweep itself
	// takes the lock, so waiting under it would deadlock.
	if old != nil {
		<-old.Stop().Done()
	}

	s.mu.Lock()
	if s.cfg.Enabled && s.c == nil {
		s.startLocked()
		s.log.Info("sweep restarted",
			logx.Duration("every", s.pollIntervalLocked()),
			logx.String("tz", s.loc.String()))
	}
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	if !s.cfg.Enabled {
		s.log.Debug("sweep disabled")
		return
	}
	s.startLocked()
	s.log.Info("sweep started",
		logx.Duration("every", s.pollIntervalLocked()),
		logx.String("tz", s.loc.String()))
}

func (s *Service) Stop(ctx context.Context) {
	_ = ctx
	s.mu.Lock()
	old := s.c
	s.c = nil
	s.mu.Unlock()
	if old == nil {
		return
	}
	// Drain outside the lock; a running tick needs s.mu to finish.
	<-old.Stop().Done()
	s.log.Info("sweep stopped")
}

func (s *Service) startLocked() {
	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	spec := fmt.Sprintf("@every %s", s.pollIntervalLocked().String())
	_, _ = s.c.AddFunc(spec, func() {
		s.Sweep(context.Background())
	})
	s.c.Start()
}

func (s *Service) pollIntervalLocked() time.Duration {
	if s.cfg.PollInterval > 0 {
		return s.cfg.PollInterval
	}
	return 10 * time.Second
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
