package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"weekplan/internal/planner"
)

// Console renders the planner to a terminal. It is deliberately dumb: the
// controller decides when to render, this type only decides how it looks.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// RenderDayTabs prints the week strip with the selected day bracketed:
//
//	Sun | Mon | [Tue] | Wed | Thu | Fri | Sat
func (c *Console) RenderDayTabs(selected planner.Day) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tabs := make([]string, 0, 7)
	for _, d := range planner.Days() {
		short := string(d)[:3]
		if d == selected {
			tabs = append(tabs, "["+short+"]")
		} else {
			tabs = append(tabs, short)
		}
	}
	fmt.Fprintf(c.w, "\n%s\n", strings.Join(tabs, " | "))
}

// RenderTaskList prints the day's schedule sorted by time. Completed tasks
// get a checked box, armed tasks a bell marker.
func (c *Console) RenderTaskList(day planner.Day, tasks []planner.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "── %s's Plan ──\n", day)
	if len(tasks) == 0 {
		fmt.Fprintf(c.w, "No tasks for %s. Add one below!\n", day)
		return
	}
	for _, t := range tasks {
		box := "[ ]"
		if t.IsComplete {
			box = "[x]"
		}
		bell := "   "
		if t.AlarmSet {
			bell = "(!)"
		}
		fmt.Fprintf(c.w, "%s %s %8s  %s  #%d\n",
			box, bell, planner.FormatClock12(t.Time), t.Text, t.ID)
	}
}
