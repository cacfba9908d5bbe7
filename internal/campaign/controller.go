// Package campaign orchestrates a calling run end to end: candidate
// ingestion, scheduled dialing, and result export.
package campaign

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"dialout/internal/dialer"
	"dialout/internal/export"
	"dialout/internal/ingest"
	"dialout/internal/records"
	"dialout/internal/runlog"
	"dialout/internal/scheduler"

	"github.com/google/uuid"
)

// Controller wires the pipeline stages together. One Controller serves one
// configured campaign; every Run* call starts a fresh run id.
type Controller struct {
	Store    records.Store
	Dialer   dialer.Dialer
	Events   *runlog.Service
	Pipeline *ingest.Pipeline
	Sched    scheduler.Config
	Agent    dialer.AgentConfig
	Log      *slog.Logger
}

func NewController(store records.Store, d dialer.Dialer, events *runlog.Service, p *ingest.Pipeline, sched scheduler.Config, agent dialer.AgentConfig, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		Store:    store,
		Dialer:   d,
		Events:   events,
		Pipeline: p,
		Sched:    sched,
		Agent:    agent,
		Log:      log,
	}
}

// IngestResult reports what an ingestion run did.
type IngestResult struct {
	RunID    string
	Valid    int
	Rejected []ingest.RejectedRow
}

// IngestCandidates runs the CSV pipeline and upserts valid rows as PENDING
// records. Re-ingesting a known unique_record_id refreshes its contact
// fields without resetting call history.
func (c *Controller) IngestCandidates(ctx context.Context, r io.Reader) (IngestResult, error) {
	runID := uuid.NewString()
	valid, rejected, err := c.Pipeline.Ingest(r)
	if err != nil {
		return IngestResult{RunID: runID}, err
	}

	for _, cand := range valid {
		rec := records.CallRecord{
			UniqueRecordID: cand.UniqueRecordID,
			FirstName:      cand.FirstName,
			LastName:       cand.LastName,
			PhoneE164:      cand.PhoneE164,
			Status:         records.DispositionPending,
		}
		if err := c.Store.UpsertCandidate(ctx, rec); err != nil {
			return IngestResult{RunID: runID}, fmt.Errorf("campaign: upserting %s: %w", cand.UniqueRecordID, err)
		}
	}

	c.appendEvent(ctx, runID, runlog.Event{
		Action: runlog.ActionCSVIngested,
		Status: "ok",
		Detail: fmt.Sprintf("valid=%d rejected=%d", len(valid), len(rejected)),
	})
	c.Log.Info("candidates ingested", "run_id", runID, "valid", len(valid), "rejected", len(rejected))
	return IngestResult{RunID: runID, Valid: len(valid), Rejected: rejected}, nil
}

// RunBatch places one throttled batch of calls and returns its stats.
func (c *Controller) RunBatch(ctx context.Context) (string, scheduler.BatchStats, error) {
	runID := uuid.NewString()
	s := scheduler.New(c.Sched, c.Store, c.Dialer, c.Events, runID, c.Log)

	c.appendEvent(ctx, runID, runlog.Event{Action: runlog.ActionRunStarted, Status: "ok", Detail: "mode=batch"})
	stats, err := s.RunBatch(ctx, c.Agent)
	c.appendEvent(ctx, runID, runlog.Event{
		Action: runlog.ActionRunFinished,
		Status: finishStatus(err),
		Detail: fmt.Sprintf("placed=%d skipped_window=%d skipped_throttle=%d errors=%d", stats.Placed, stats.SkippedWindow, stats.SkippedThrottle, stats.Errors),
	})
	return runID, stats, err
}

// RunContinuous drives batches until the pending set drains, the runtime
// ceiling is hit, or ctx is cancelled.
func (c *Controller) RunContinuous(ctx context.Context, opts scheduler.RunOptions) (string, scheduler.RunStats, error) {
	runID := uuid.NewString()
	s := scheduler.New(c.Sched, c.Store, c.Dialer, c.Events, runID, c.Log)

	c.appendEvent(ctx, runID, runlog.Event{Action: runlog.ActionRunStarted, Status: "ok", Detail: "mode=continuous"})
	stats, err := s.RunContinuous(ctx, c.Agent, opts)
	c.appendEvent(ctx, runID, runlog.Event{
		Action: runlog.ActionRunFinished,
		Status: finishStatus(err),
		Detail: fmt.Sprintf("batches=%d placed=%d errors=%d", stats.Batches, stats.Placed, stats.Errors),
	})
	return runID, stats, err
}

// ExportResults writes the current record set as a results CSV.
func (c *Controller) ExportResults(ctx context.Context, w io.Writer, opts export.Options) (export.Summary, error) {
	recs, err := c.Store.ListAll(ctx)
	if err != nil {
		return export.Summary{}, err
	}
	if err := export.WriteResults(w, recs, opts); err != nil {
		return export.Summary{}, err
	}
	return export.Summarize(recs), nil
}

// Summary computes the disposition breakdown without exporting.
func (c *Controller) Summary(ctx context.Context) (export.Summary, error) {
	recs, err := c.Store.ListAll(ctx)
	if err != nil {
		return export.Summary{}, err
	}
	return export.Summarize(recs), nil
}

// appendEvent is best-effort; a run log failure never fails the run.
func (c *Controller) appendEvent(ctx context.Context, runID string, e runlog.Event) {
	if c.Events == nil {
		return
	}
	e.RunID = runID
	if err := c.Events.Append(ctx, e); err != nil {
		c.Log.Warn("run event append failed", "run_id", runID, "action", e.Action, "err", err)
	}
}

func finishStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
