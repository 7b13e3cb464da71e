// Package alarm runs the reminder sweep.
//
// # Overview
//
// One process-wide repeating trigger (no per-task timers) compares the
// current wall clock, truncated to the minute, against every task scheduled
// for the current day. A task fires when it is armed, not complete, and its
// HH:MM equals the truncated clock. Firing invokes the reminder sink
// (fire-and-forget) and disarms the task through the store, which is what
// keeps the same task from re-firing on the next tick within the same
// matching minute.
//
// # Timing contract
//
// The poll interval must stay under one minute so every scheduled minute is
// observed by at least one tick while the process is resident. There is no
// catch-up: if the process was not running at the scheduled minute, that
// occurrence is skipped. A fired task stays disarmed until the user re-arms
// it. Re-arming while the clock still matches the task's minute fires it
// again on the next tick; the notifier's dedup window (keyed by day, task
// and minute) is what suppresses the duplicate delivery in that case.
//
// # Day rollover
//
// The sweep derives "today" fresh on every tick, so crossing midnight needs
// no special casing.
package alarm
