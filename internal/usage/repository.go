package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const usageDDL = `
CREATE TABLE IF NOT EXISTS usage_ledger (
	id              TEXT PRIMARY KEY,
	workspace_id    TEXT NOT NULL,
	period          TEXT NOT NULL,
	units           BIGINT NOT NULL,
	external_ref    TEXT NOT NULL DEFAULT '',
	idempotency_key TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (workspace_id, idempotency_key)
);

CREATE TABLE IF NOT EXISTS usage_counters (
	workspace_id TEXT NOT NULL,
	period       TEXT NOT NULL,
	limit_units  BIGINT NOT NULL,
	used_units   BIGINT NOT NULL DEFAULT 0,
	updated_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (workspace_id, period)
);

CREATE INDEX IF NOT EXISTS idx_usage_ledger_workspace_period ON usage_ledger (workspace_id, period);
`

// Migrate creates the usage tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, usageDDL)
	return err
}

// lockCounter fetches the counter row FOR UPDATE, inserting it at the
// default limit when the workspace first consumes in a period.
func lockCounter(ctx context.Context, tx *sql.Tx, workspaceID, period string, defaultLimit int64, now time.Time) (QuotaStatus, error) {
	const insert = `
INSERT INTO usage_counters (workspace_id, period, limit_units, used_units, updated_at)
VALUES ($1, $2, $3, 0, $4)
ON CONFLICT (workspace_id, period) DO NOTHING
`
	if _, err := tx.ExecContext(ctx, insert, workspaceID, period, defaultLimit, now); err != nil {
		return QuotaStatus{}, err
	}

	const q = `
SELECT workspace_id, period, limit_units, used_units, updated_at
FROM usage_counters
WHERE workspace_id = $1 AND period = $2
FOR UPDATE
`
	var st QuotaStatus
	if err := tx.QueryRowContext(ctx, q, workspaceID, period).Scan(
		&st.WorkspaceID, &st.Period, &st.LimitUnits, &st.UsedUnits, &st.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuotaStatus{}, ErrNotFound
		}
		return QuotaStatus{}, err
	}
	return st, nil
}

func getStatus(ctx context.Context, db *sql.DB, workspaceID, period string) (QuotaStatus, error) {
	const q = `
SELECT workspace_id, period, limit_units, used_units, updated_at
FROM usage_counters
WHERE workspace_id = $1 AND period = $2
`
	var st QuotaStatus
	if err := db.QueryRowContext(ctx, q, workspaceID, period).Scan(
		&st.WorkspaceID, &st.Period, &st.LimitUnits, &st.UsedUnits, &st.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuotaStatus{}, ErrNotFound
		}
		return QuotaStatus{}, err
	}
	return st, nil
}

func findEntryByIdempotency(ctx context.Context, tx *sql.Tx, workspaceID, key string) (UsageEntry, bool, error) {
	const q = `
SELECT id, workspace_id, period, units, external_ref, idempotency_key, created_at
FROM usage_ledger
WHERE workspace_id = $1 AND idempotency_key = $2
`
	var e UsageEntry
	err := tx.QueryRowContext(ctx, q, workspaceID, key).Scan(
		&e.ID, &e.WorkspaceID, &e.Period, &e.Units, &e.ExternalRef, &e.IdempotencyKey, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return UsageEntry{}, false, nil
	}
	if err != nil {
		return UsageEntry{}, false, err
	}
	return e, true, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e UsageEntry) error {
	const q = `
INSERT INTO usage_ledger (id, workspace_id, period, units, external_ref, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := tx.ExecContext(ctx, q, e.ID, e.WorkspaceID, e.Period, e.Units, e.ExternalRef, e.IdempotencyKey, e.CreatedAt)
	return err
}

func applyCounterDelta(ctx context.Context, tx *sql.Tx, workspaceID, period string, delta int64, now time.Time) (QuotaStatus, error) {
	const q = `
UPDATE usage_counters
SET used_units = used_units + $3, updated_at = $4
WHERE workspace_id = $1 AND period = $2
RETURNING workspace_id, period, limit_units, used_units, updated_at
`
	var st QuotaStatus
	if err := tx.QueryRowContext(ctx, q, workspaceID, period, delta, now).Scan(
		&st.WorkspaceID, &st.Period, &st.LimitUnits, &st.UsedUnits, &st.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuotaStatus{}, ErrNotFound
		}
		return QuotaStatus{}, err
	}
	return st, nil
}
