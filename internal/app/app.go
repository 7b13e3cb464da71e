// Package app assembles the planner daemon: config, logging, storage, the
// task store, the alarm sweep, the reminder pipeline, and the console UI.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"weekplan/internal/alarm"
	"weekplan/internal/config"
	"weekplan/internal/controller"
	"weekplan/internal/eventbus"
	"weekplan/internal/notifier"
	"weekplan/internal/planner"
	"weekplan/internal/runtime/supervisor"
	"weekplan/internal/storage"
	"weekplan/internal/ui"
	logx "weekplan/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	tasks *planner.Store
	notif *notifier.Service
	sweep *alarm.Service

	ctrl    *controller.Controller
	console *ui.Console
	input   *ui.InputLoop
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	tasks := planner.NewStore(store, log.With(logx.String("comp", "planner")), bus)

	// Delivery backends. A backend that fails to initialize is skipped with a
	// warning; reminders must not take the planner down.
	var backends []notifier.Backend
	if desktopEnabled(cfg) {
		backends = append(backends, notifier.NewDesktop(notifier.DesktopConfig{
			Sound: cfg.Notify.Desktop.Sound,
			Icon:  cfg.Notify.Desktop.Icon,
		}))
	}
	if cfg.Notify.Telegram.Enabled {
		tg, err := notifier.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID)
		if err != nil {
			log.Warn("telegram backend disabled", logx.Err(err))
		} else {
			backends = append(backends, tg)
		}
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notifier.New(ncfg, backends, log.With(logx.String("comp", "notifier")))

	acfg, err := mapAlarmConfig(cfg)
	if err != nil {
		return nil, err
	}
	sweepSvc := alarm.New(acfg, tasks, notifSvc, log.With(logx.String("comp", "alarm")), bus)

	console := ui.NewConsole(os.Stdout)
	ctrl := controller.New(tasks, console, log.With(logx.String("comp", "controller")), bus, startDay(cfg, time.Now()))
	input := ui.NewInputLoop(ctrl, os.Stdin, os.Stdout, log.With(logx.String("comp", "ui")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		tasks:   tasks,
		notif:   notifSvc,
		sweep:   sweepSvc,
		ctrl:    ctrl,
		console: console,
		input:   input,
	}, nil
}

// Done is closed when the app supervisor context is canceled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	// Transactional config reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	a.tasks.Load(a.sup.Context())

	a.notif.Start(a.sup.Context())
	if a.sweep.Enabled() {
		a.sweep.Start(a.sup.Context())
	}

	// Initial paint.
	a.ctrl.SelectDay(a.ctrl.Current())

	a.sup.Go0("controller.events", func(c context.Context) {
		a.ctrl.Run(c)
	})
	a.sup.Go("ui.input", func(c context.Context) error {
		return a.input.Run(c)
	})

	// Debug visibility into bus traffic.
	events, unsub := a.bus.Subscribe(64)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// Hot reload fan-out.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("app started")
	return nil
}

// applyConfig pushes a validated hot-reloaded config into the live services.
// Storage driver changes need a restart; everything else applies in place.
func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	if cfg == nil {
		return
	}

	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if ncfg, err := mapNotifierConfig(cfg); err != nil {
		a.log.Warn("invalid notify config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}

	if acfg, err := mapAlarmConfig(cfg); err != nil {
		a.log.Warn("invalid alarm config; keeping previous", logx.Err(err))
	} else {
		wasEnabled := a.sweep.Enabled()
		a.sweep.Apply(acfg)
		if !wasEnabled && acfg.Enabled {
			a.sweep.Start(ctx)
		}
	}

	if _, enabled, err := mapStorageConfig(cfg); err == nil {
		if (a.store != nil) != enabled {
			a.log.Warn("storage config changed; restart required for changes to take effect")
		}
	}

	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	// Cancel the run context first so background loops unwind immediately.
	a.sup.Cancel()

	// Each step gets an upper bound so one component cannot stall the stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("alarm", 2*time.Second, func(c context.Context) error { a.sweep.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("storage", time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
