package controller

import (
	"context"
	"sync"

	"weekplan/internal/eventbus"
	"weekplan/internal/planner"
	logx "weekplan/pkg/logx"
)

// Renderer is the display surface. Implementations render a day's task list
// and the day tabs; the controller decides when.
type Renderer interface {
	RenderDayTabs(selected planner.Day)
	RenderTaskList(day planner.Day, tasks []planner.Task)
}

// Controller routes user intents to the store and keeps the display surface
// in sync. It owns the "currently displayed day"; mutations always target
// that day, mirroring how the planner UI operates.
type Controller struct {
	log   logx.Logger
	store *planner.Store
	view  Renderer
	bus   eventbus.Bus

	mu      sync.Mutex
	current planner.Day
}

func New(store *planner.Store, view Renderer, log logx.Logger, bus eventbus.Bus, start planner.Day) *Controller {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Controller{log: log, store: store, view: view, bus: bus, current: start}
}

func (c *Controller) Current() planner.Day {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SelectDay switches the displayed day and re-renders tabs + list.
func (c *Controller) SelectDay(day planner.Day) {
	c.mu.Lock()
	c.current = day
	c.mu.Unlock()

	if c.view != nil {
		c.view.RenderDayTabs(day)
	}
	c.render(day)
}

// Submit adds a task to the displayed day. Invalid input (empty text,
// unparseable time) is rejected without mutating anything; the error is
// returned so the surface may show it, but nothing escalates.
func (c *Controller) Submit(ctx context.Context, text, clock string) error {
	day := c.Current()
	t, err := c.store.AddTask(ctx, day, text, clock)
	if err != nil {
		c.log.Debug("task rejected", logx.String("day", string(day)), logx.Err(err))
		return err
	}
	c.log.Info("task added",
		logx.String("day", string(day)),
		logx.Int64("id", t.ID),
		logx.String("time", t.Time))
	c.render(day)
	return nil
}

// Delete removes a task from the displayed day; missing ids are a no-op.
func (c *Controller) Delete(ctx context.Context, id int64) {
	day := c.Current()
	if c.store.DeleteTask(ctx, day, id) {
		c.render(day)
	}
}

func (c *Controller) ToggleComplete(ctx context.Context, id int64) {
	day := c.Current()
	if c.store.ToggleComplete(ctx, day, id) {
		c.render(day)
	}
}

func (c *Controller) ToggleAlarm(ctx context.Context, id int64) {
	day := c.Current()
	if c.store.ToggleAlarm(ctx, day, id) {
		c.render(day)
	}
}

// Run listens for alarm firings and re-renders when the fired task belongs
// to the displayed day. Blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) {
	if c.bus == nil {
		<-ctx.Done()
		return
	}
	ch, unsub := c.bus.Subscribe(16)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type != eventbus.AlarmFired {
				continue
			}
			te, ok := ev.Data.(planner.TaskEvent)
			if !ok {
				continue
			}
			if te.Day == c.Current() {
				c.render(te.Day)
			}
		}
	}
}

func (c *Controller) render(day planner.Day) {
	if c.view == nil {
		return
	}
	c.view.RenderTaskList(day, c.store.TasksFor(day))
}
