package scheduler

import (
	"context"
	"time"

	"dialout/internal/dialer"
)

// RunOptions controls continuous mode.
type RunOptions struct {
	// MaxRuntime is the wall-clock ceiling for the whole run, checked at
	// the top of every loop iteration.
	MaxRuntime time.Duration

	// PollInterval is the pause after a batch that placed zero calls, to
	// avoid hot-looping while throttled.
	PollInterval time.Duration

	// BatchPause is the short pause between productive batches.
	BatchPause time.Duration
}

func (o RunOptions) withDefaults() RunOptions {
	out := o
	if out.MaxRuntime <= 0 {
		out.MaxRuntime = 12 * time.Hour
	}
	if out.PollInterval <= 0 {
		out.PollInterval = time.Minute
	}
	if out.BatchPause <= 0 {
		out.BatchPause = 10 * time.Second
	}
	return out
}

// RunStats aggregates a continuous run.
type RunStats struct {
	BatchStats
	Batches int `json:"batches"`
}

// RunContinuous loops RunBatch until no pending or retry-eligible records
// remain, the runtime ceiling is hit, or ctx is cancelled. Outside the
// calling window it waits instead of batching.
func (s *Scheduler) RunContinuous(ctx context.Context, agent dialer.AgentConfig, opts RunOptions) (RunStats, error) {
	opts = opts.withDefaults()
	started := s.clock()
	var total RunStats

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if s.clock().Sub(started) >= opts.MaxRuntime {
			s.log.Info("max runtime reached", "elapsed", s.clock().Sub(started).String())
			return total, nil
		}

		if !s.inCallingWindow(s.clock()) {
			if err := s.WaitForWindow(ctx); err != nil {
				return total, err
			}
			continue
		}

		pending, err := s.store.GetPendingRecords(ctx, s.cfg.MaxRetries, 1)
		if err != nil {
			return total, err
		}
		if len(pending) == 0 {
			s.log.Info("all records processed")
			return total, nil
		}

		stats, err := s.RunBatch(ctx, agent)
		if err != nil {
			return total, err
		}
		total.Add(stats)
		total.Batches++

		if stats.Placed == 0 {
			s.log.Info("no calls placed, pausing", "interval", opts.PollInterval.String())
			sleepCtx(ctx, opts.PollInterval)
		} else {
			sleepCtx(ctx, opts.BatchPause)
		}
	}
}
