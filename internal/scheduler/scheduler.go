// Package scheduler decides which pending records are eligible to be called
// right now and drives bounded-concurrency call placement. It enforces the
// calling window, hourly/daily throttles, per-record retry backoff, and a
// global concurrency limit.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dialout/internal/dialer"
	"dialout/internal/records"
	"dialout/internal/runlog"
)

// Config carries the calling policy. Validation happens in internal/config;
// the scheduler assumes sane values.
type Config struct {
	MaxConcurrentCalls int
	MaxCallsPerHour    int
	MaxCallsPerDay     int
	MaxRetries         int
	RetryDelay         time.Duration

	// WindowStart/WindowEnd are local "HH:MM" bounds, both inclusive.
	WindowStart string
	WindowEnd   string
	Timezone    *time.Location

	// PacingDelay is inserted after each placement to avoid bursting the
	// provider. Zero means no pacing (useful in tests).
	PacingDelay time.Duration
}

// BatchStats summarizes one RunBatch invocation.
type BatchStats struct {
	Placed          int `json:"placed"`
	SkippedWindow   int `json:"skipped_window"`
	SkippedThrottle int `json:"skipped_throttle"`
	Errors          int `json:"errors"`
}

func (s *BatchStats) Add(o BatchStats) {
	s.Placed += o.Placed
	s.SkippedWindow += o.SkippedWindow
	s.SkippedThrottle += o.SkippedThrottle
	s.Errors += o.Errors
}

// Scheduler is a single logical instance per active run. Multiple runs may
// operate concurrently with independent Scheduler values; the record store
// is the only shared state.
type Scheduler struct {
	cfg    Config
	store  records.Store
	dialer dialer.Dialer
	events *runlog.Service
	runID  string
	log    *slog.Logger
	clock  func() time.Time

	// Rolling counters are a cache of store truth, re-derived from
	// CountCallsSince at batch start. mu guards them against concurrent
	// placements so throttle limits are never overshot under races.
	mu            sync.Mutex
	callsThisHour int
	callsToday    int
	hourStart     time.Time
	dayStart      time.Time
}

func New(cfg Config, store records.Store, d dialer.Dialer, events *runlog.Service, runID string, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	now := time.Now().In(cfg.Timezone)
	return &Scheduler{
		cfg:       cfg,
		store:     store,
		dialer:    d,
		events:    events,
		runID:     runID,
		log:       log.With("run_id", runID),
		clock:     time.Now,
		hourStart: now,
		dayStart:  startOfDay(now),
	}
}

// RunBatch fetches eligible records and places calls for them, bounded by
// the concurrency limit. Provider errors are per-record and never abort the
// batch; store errors propagate.
func (s *Scheduler) RunBatch(ctx context.Context, agent dialer.AgentConfig) (BatchStats, error) {
	var stats BatchStats
	if s.store == nil || s.dialer == nil {
		return stats, errors.New("scheduler: not initialized")
	}

	if err := s.refreshCounters(ctx); err != nil {
		return stats, fmt.Errorf("refresh counters: %w", err)
	}

	pending, err := s.store.GetPendingRecords(ctx, s.cfg.MaxRetries, s.cfg.MaxCallsPerDay)
	if err != nil {
		return stats, fmt.Errorf("fetch pending: %w", err)
	}
	if len(pending) == 0 {
		s.log.Info("no pending records")
		return stats, nil
	}

	s.mu.Lock()
	hour, day := s.callsThisHour, s.callsToday
	s.mu.Unlock()
	s.log.Info("batch starting",
		"pending", len(pending),
		"calls_this_hour", hour,
		"calls_today", day,
		"max_daily", s.cfg.MaxCallsPerDay,
	)

	var statsMu sync.Mutex
	bump := func(f func(*BatchStats)) {
		statsMu.Lock()
		f(&stats)
		statsMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentCalls)

	now := s.clock()
	budget := 0
	for _, rec := range pending {
		// Cheap pre-filter before committing a slot. hour/day are the
		// counters snapshotted above; budget accounts for placements
		// already queued in this batch. Races from concurrent placements
		// are caught again by reserveThrottleSlot inside the limiter.
		if day+budget >= s.cfg.MaxCallsPerDay ||
			hour+budget >= s.cfg.MaxCallsPerHour {
			bump(func(st *BatchStats) { st.SkippedThrottle++ })
			continue
		}
		if !s.inCallingWindow(now) {
			bump(func(st *BatchStats) { st.SkippedWindow++ })
			continue
		}
		if !s.retryEligible(rec, now) {
			bump(func(st *BatchStats) { st.SkippedThrottle++ })
			continue
		}

		budget++
		rec := rec
		g.Go(func() error {
			return s.placeSingleCall(gctx, rec, agent, bump)
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	s.log.Info("batch complete",
		"placed", stats.Placed,
		"skipped_window", stats.SkippedWindow,
		"skipped_throttle", stats.SkippedThrottle,
		"errors", stats.Errors,
	)
	return stats, nil
}

// placeSingleCall runs inside the concurrency limiter. It repeats the
// window and throttle checks to catch races introduced by concurrent
// placements, re-reads the record immediately before calling out, and
// paces after the provider returns.
//
// Returned errors are store faults only; a provider failure is logged,
// recorded as a call_error run event, and counted under Errors.
func (s *Scheduler) placeSingleCall(ctx context.Context, rec records.CallRecord, agent dialer.AgentConfig, bump func(func(*BatchStats))) error {
	if !s.inCallingWindow(s.clock()) {
		bump(func(st *BatchStats) { st.SkippedWindow++ })
		return nil
	}
	if !s.reserveThrottleSlot() {
		bump(func(st *BatchStats) { st.SkippedThrottle++ })
		return nil
	}

	// Idempotency: another path may have resolved this record since the
	// batch fetch. A redundant call attempt is the only cost of losing this
	// race, so a re-read (not a lock) is sufficient.
	fresh, err := s.store.GetByUniqueID(ctx, rec.UniqueRecordID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			s.releaseThrottleSlot()
			return nil
		}
		s.releaseThrottleSlot()
		return fmt.Errorf("refetch %s: %w", rec.UniqueRecordID, err)
	}
	if !fresh.Status.Retryable() {
		s.releaseThrottleSlot()
		s.log.Info("skipping already resolved record",
			"record_id", rec.UniqueRecordID, "status", fresh.Status)
		return nil
	}

	result, err := s.dialer.PlaceCall(ctx, dialer.PlaceCallRequest{
		PhoneE164:     rec.PhoneE164,
		Agent:         agent,
		CandidateName: rec.FirstName,
		CorrelationID: rec.UniqueRecordID,
	})
	if err != nil {
		s.releaseThrottleSlot()
		s.log.Error("call placement failed",
			"record_id", rec.UniqueRecordID, "err", err)
		s.logEvent(ctx, rec.UniqueRecordID, "call_error", "", "error", err.Error())
		bump(func(st *BatchStats) { st.Errors++ })
		return nil
	}

	if err := s.store.MarkCallStarted(ctx, rec.UniqueRecordID, result.ProviderCallID); err != nil {
		return fmt.Errorf("mark call started %s: %w", rec.UniqueRecordID, err)
	}
	s.logEvent(ctx, rec.UniqueRecordID, "call_placed", result.ProviderCallID, "in_progress", "")
	bump(func(st *BatchStats) { st.Placed++ })

	sleepCtx(ctx, s.cfg.PacingDelay)
	return nil
}

// reserveThrottleSlot atomically checks the hourly and daily limits and
// claims a slot against both. Pairs with releaseThrottleSlot on placement
// failure so a failed call does not consume budget.
func (s *Scheduler) reserveThrottleSlot() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callsThisHour >= s.cfg.MaxCallsPerHour || s.callsToday >= s.cfg.MaxCallsPerDay {
		return false
	}
	s.callsThisHour++
	s.callsToday++
	return true
}

func (s *Scheduler) releaseThrottleSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callsThisHour > 0 {
		s.callsThisHour--
	}
	if s.callsToday > 0 {
		s.callsToday--
	}
}

// retryEligible: first attempts are always eligible; past the ceiling never;
// otherwise the retry delay must have fully elapsed (boundary inclusive).
func (s *Scheduler) retryEligible(rec records.CallRecord, now time.Time) bool {
	if rec.AttemptCount == 0 {
		return true
	}
	if rec.AttemptCount > s.cfg.MaxRetries {
		return false
	}
	if rec.LastCalledAt == nil {
		return true
	}
	return now.Sub(*rec.LastCalledAt) >= s.cfg.RetryDelay
}

// refreshCounters re-derives the rolling counters from the store, rolling
// the in-memory windows over when they have expired.
func (s *Scheduler) refreshCounters(ctx context.Context) error {
	now := s.clock().In(s.cfg.Timezone)

	s.mu.Lock()
	hourRolled := now.Sub(s.hourStart) >= time.Hour
	dayRolled := now.YearDay() != s.dayStart.YearDay() || now.Year() != s.dayStart.Year()
	s.mu.Unlock()

	var hourCount, dayCount int
	var err error
	if !hourRolled {
		hourCount, err = s.store.CountCallsSince(ctx, now.Add(-time.Hour))
		if err != nil {
			return err
		}
	}
	if !dayRolled {
		dayCount, err = s.store.CountCallsSince(ctx, startOfDay(now))
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if hourRolled {
		s.hourStart = now
		s.callsThisHour = 0
	} else {
		s.callsThisHour = hourCount
	}
	if dayRolled {
		s.dayStart = startOfDay(now)
		s.callsToday = 0
	} else {
		s.callsToday = dayCount
	}
	return nil
}

func (s *Scheduler) logEvent(ctx context.Context, recordID, action, providerCallID, status, detail string) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, runlog.Event{
		RunID:          s.runID,
		UniqueRecordID: recordID,
		ProviderCallID: providerCallID,
		Action:         action,
		Status:         status,
		Detail:         detail,
	}); err != nil {
		s.log.Warn("run event append failed", "action", action, "err", err)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever is first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
