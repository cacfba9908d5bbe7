package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// windowRecheck bounds every window-wait sleep so clock drift or a timezone
// rule change never strands the scheduler past the opening instant.
const windowRecheck = 5 * time.Minute

// InCallingWindow reports whether the current local time falls inside
// [window_start, window_end], both inclusive at minute granularity.
func (s *Scheduler) InCallingWindow() bool {
	return s.inCallingWindow(s.clock())
}

func (s *Scheduler) inCallingWindow(now time.Time) bool {
	local := now.In(s.cfg.Timezone)
	cur := local.Hour()*60 + local.Minute()
	start := mustParseHHMM(s.cfg.WindowStart)
	end := mustParseHHMM(s.cfg.WindowEnd)
	return cur >= start && cur <= end
}

// NextWindowOpen computes the next instant the calling window opens: today
// if it has not started yet, tomorrow if it has already closed.
func (s *Scheduler) NextWindowOpen(now time.Time) time.Time {
	local := now.In(s.cfg.Timezone)
	start := mustParseHHMM(s.cfg.WindowStart)
	end := mustParseHHMM(s.cfg.WindowEnd)

	openToday := time.Date(local.Year(), local.Month(), local.Day(),
		start/60, start%60, 0, 0, s.cfg.Timezone)

	cur := local.Hour()*60 + local.Minute()
	if cur > end {
		return openToday.AddDate(0, 0, 1)
	}
	return openToday
}

// WaitForWindow suspends the caller until the calling window opens,
// re-checking at least every five minutes and never sleeping past the
// opening instant. Returns early on context cancellation.
func (s *Scheduler) WaitForWindow(ctx context.Context) error {
	for !s.inCallingWindow(s.clock()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := s.clock()
		next := s.NextWindowOpen(now)
		wait := next.Sub(now)
		if wait > windowRecheck {
			wait = windowRecheck
		}
		s.log.Info("waiting for calling window",
			"next_open", next.Format(time.RFC3339),
			"wait", wait.Round(time.Second).String(),
		)
		sleepCtx(ctx, wait)
	}
	return ctx.Err()
}

// mustParseHHMM converts "HH:MM" to minutes since midnight. Config
// validation guarantees the format; a zero fallback keeps a malformed value
// from panicking mid-run.
func mustParseHHMM(v string) int {
	h, m, err := ParseHHMM(v)
	if err != nil {
		return 0
	}
	return h*60 + m
}

// ParseHHMM parses a "HH:MM" wall-clock string.
func ParseHHMM(v string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid HH:MM value %q", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", v)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", v)
	}
	return hour, minute, nil
}
