package runlog

import "time"

// Event is an immutable, append-only run-log record: one row per
// significant scheduler or pipeline action.
//
// Invariants:
// - Events are never updated or deleted.
// - Append failures must not block the calling flow; treat as best-effort.
type Event struct {
	ID             string `json:"id" db:"id"`
	RunID          string `json:"run_id" db:"run_id"`
	UniqueRecordID string `json:"unique_record_id" db:"unique_record_id"`
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	// Action is a free-text tag, e.g. call_placed, call_error, csv_ingested.
	Action string `json:"action" db:"action"`
	Status string `json:"status,omitempty" db:"status"`
	Detail string `json:"detail,omitempty" db:"detail"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Well-known action tags.
const (
	ActionCallPlaced  = "call_placed"
	ActionCallError   = "call_error"
	ActionCSVIngested = "csv_ingested"
	ActionRunStarted  = "run_started"
	ActionRunFinished = "run_finished"
)

// SystemRecordID marks events not tied to a specific record.
const SystemRecordID = "__system__"
