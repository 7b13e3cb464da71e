package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"weekplan/internal/controller"
	"weekplan/internal/planner"
	logx "weekplan/pkg/logx"
)

// InputLoop parses line commands from a reader (normally stdin) and drives
// the controller. One command per line:
//
//	day <name>            switch the displayed day (full name or 3 letters)
//	add <HH:MM> <text>    add a task to the displayed day
//	done <id>             toggle completion
//	bell <id>             toggle the alarm
//	del <id>              delete
//	list                  re-render the displayed day
//	help                  print this summary
type InputLoop struct {
	log  logx.Logger
	ctrl *controller.Controller
	in   io.Reader
	out  io.Writer
}

func NewInputLoop(ctrl *controller.Controller, in io.Reader, out io.Writer, log logx.Logger) *InputLoop {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &InputLoop{log: log, ctrl: ctrl, in: in, out: out}
}

// Run reads commands until the reader is exhausted or ctx is canceled.
// A read in flight cannot be interrupted; cancellation is honored on the
// next line boundary, which is fine since teardown kills the process anyway.
func (l *InputLoop) Run(ctx context.Context) error {
	sc := bufio.NewScanner(l.in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		l.dispatch(ctx, line)
	}
	return sc.Err()
}

func (l *InputLoop) dispatch(ctx context.Context, line string) {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "day":
		day, ok := planner.ParseDay(rest)
		if !ok {
			fmt.Fprintf(l.out, "unknown day %q\n", rest)
			return
		}
		l.ctrl.SelectDay(day)

	case "add":
		clock, text, _ := strings.Cut(rest, " ")
		if err := l.ctrl.Submit(ctx, strings.TrimSpace(text), clock); err != nil {
			fmt.Fprintf(l.out, "not added: %v\n", err)
		}

	case "done":
		if id, ok := l.parseID(rest); ok {
			l.ctrl.ToggleComplete(ctx, id)
		}

	case "bell":
		if id, ok := l.parseID(rest); ok {
			l.ctrl.ToggleAlarm(ctx, id)
		}

	case "del":
		if id, ok := l.parseID(rest); ok {
			l.ctrl.Delete(ctx, id)
		}

	case "list":
		l.ctrl.SelectDay(l.ctrl.Current())

	case "help":
		fmt.Fprint(l.out, "commands: day <name> | add <HH:MM> <text> | done <id> | bell <id> | del <id> | list | help\n")

	default:
		fmt.Fprintf(l.out, "unknown command %q (try: help)\n", verb)
	}
}

func (l *InputLoop) parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		fmt.Fprintf(l.out, "bad task id %q\n", s)
		return 0, false
	}
	return id, true
}
