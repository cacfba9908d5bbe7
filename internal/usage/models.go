package usage

import "time"

// UsageEntry is one append-only ledger row; one entry per placed call.
// Idempotency key is the provider call id, so webhook retries and scheduler
// re-submissions cannot double-count.
type UsageEntry struct {
	ID             string    `json:"id"`
	WorkspaceID    string    `json:"workspace_id"`
	Period         string    `json:"period"` // YYYY-MM, UTC
	Units          int64     `json:"units"`
	ExternalRef    string    `json:"external_ref,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuotaStatus is the projection row: consumed units for one workspace and
// calendar month, updated atomically alongside ledger inserts.
type QuotaStatus struct {
	WorkspaceID string    `json:"workspace_id"`
	Period      string    `json:"period"`
	LimitUnits  int64     `json:"limit_units"`
	UsedUnits   int64     `json:"used_units"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Remaining reports the headroom left in the period; never negative.
func (q QuotaStatus) Remaining() int64 {
	if q.UsedUnits >= q.LimitUnits {
		return 0
	}
	return q.LimitUnits - q.UsedUnits
}

// PeriodOf formats t's UTC calendar month as a quota period key.
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}
