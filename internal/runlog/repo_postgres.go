package runlog

import (
	"context"
	"database/sql"
)

// PostgresRepo stores run events in the run_events table. INSERT-only;
// an optional trigger preventing UPDATE/DELETE is recommended in production.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const runEventsDDL = `
CREATE TABLE IF NOT EXISTS run_events (
    id               TEXT PRIMARY KEY,
    run_id           TEXT NOT NULL,
    unique_record_id TEXT NOT NULL,
    provider_call_id TEXT NOT NULL DEFAULT '',
    action           TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT '',
    detail           TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
`

func (r *PostgresRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, runEventsDDL)
	return err
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO run_events (id, run_id, unique_record_id, provider_call_id, action, status, detail, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.RunID,
		e.UniqueRecordID,
		e.ProviderCallID,
		e.Action,
		e.Status,
		e.Detail,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListByRun(ctx context.Context, runID string) ([]Event, error) {
	const q = `
SELECT id, run_id, unique_record_id, provider_call_id, action, status, detail, created_at
FROM run_events
WHERE run_id = $1
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.RunID,
			&e.UniqueRecordID,
			&e.ProviderCallID,
			&e.Action,
			&e.Status,
			&e.Detail,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
