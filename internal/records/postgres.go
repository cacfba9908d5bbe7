package records

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore implements Store on top of database/sql (pgx stdlib driver).
//
// Assumed table: call_records. Migrate creates it for local/dev; production
// deployments should run migrations out of band.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const callRecordsDDL = `
CREATE TABLE IF NOT EXISTS call_records (
    id                      BIGSERIAL PRIMARY KEY,
    unique_record_id        TEXT NOT NULL UNIQUE,
    first_name              TEXT NOT NULL DEFAULT '',
    last_name               TEXT NOT NULL DEFAULT '',
    phone_e164              TEXT NOT NULL,
    provider_call_id        TEXT NOT NULL DEFAULT '',
    status                  TEXT NOT NULL DEFAULT 'PENDING',
    attempt_count           INT NOT NULL DEFAULT 0,
    last_called_at          TIMESTAMPTZ,
    short_summary           TEXT NOT NULL DEFAULT '',
    raw_call_outcome        TEXT NOT NULL DEFAULT '',
    transcript              TEXT NOT NULL DEFAULT '',
    recording_url           TEXT NOT NULL DEFAULT '',
    extracted_location      TEXT NOT NULL DEFAULT '',
    extracted_availability  TEXT NOT NULL DEFAULT '',
    created_at              TIMESTAMPTZ NOT NULL,
    updated_at              TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_call_records_status ON call_records(status);
CREATE INDEX IF NOT EXISTS idx_call_records_provider_call ON call_records(provider_call_id);
CREATE INDEX IF NOT EXISTS idx_call_records_last_called ON call_records(last_called_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, callRecordsDDL)
	return err
}

const recordColumns = `
id, unique_record_id, first_name, last_name, phone_e164, provider_call_id,
status, attempt_count, last_called_at, short_summary, raw_call_outcome,
transcript, recording_url, extracted_location, extracted_availability,
created_at, updated_at`

func (s *PostgresStore) UpsertCandidate(ctx context.Context, rec CallRecord) error {
	now := s.clock().UTC()
	if rec.Status == "" {
		rec.Status = DispositionPending
	}
	const q = `
INSERT INTO call_records (
  unique_record_id, first_name, last_name, phone_e164, status, attempt_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (unique_record_id) DO UPDATE SET
  phone_e164 = EXCLUDED.phone_e164,
  first_name = EXCLUDED.first_name,
  last_name  = EXCLUDED.last_name,
  updated_at = EXCLUDED.updated_at
`
	_, err := s.db.ExecContext(ctx, q,
		rec.UniqueRecordID,
		rec.FirstName,
		rec.LastName,
		rec.PhoneE164,
		rec.Status,
		rec.AttemptCount,
		now,
		now,
	)
	return err
}

func (s *PostgresStore) GetPendingRecords(ctx context.Context, maxRetries, limit int) ([]CallRecord, error) {
	const q = `
SELECT ` + recordColumns + `
FROM call_records
WHERE status IN ('PENDING','NO_ANSWER','BUSY','FAILED')
  AND attempt_count <= $1
ORDER BY created_at ASC
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetByUniqueID(ctx context.Context, uniqueRecordID string) (CallRecord, error) {
	const q = `SELECT ` + recordColumns + ` FROM call_records WHERE unique_record_id = $1`
	return s.getOne(ctx, q, uniqueRecordID)
}

func (s *PostgresStore) GetByProviderCallID(ctx context.Context, providerCallID string) (CallRecord, error) {
	const q = `SELECT ` + recordColumns + ` FROM call_records WHERE provider_call_id = $1`
	return s.getOne(ctx, q, providerCallID)
}

func (s *PostgresStore) getOne(ctx context.Context, q string, arg any) (CallRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, err
	}
	return rec, nil
}

func (s *PostgresStore) MarkCallStarted(ctx context.Context, uniqueRecordID, providerCallID string) error {
	now := s.clock().UTC()
	const q = `
UPDATE call_records
SET provider_call_id = $1,
    attempt_count = attempt_count + 1,
    last_called_at = $2,
    updated_at = $2
WHERE unique_record_id = $3
`
	res, err := s.db.ExecContext(ctx, q, providerCallID, now, uniqueRecordID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateCallResult(ctx context.Context, providerCallID string, r CallResult) error {
	now := s.clock().UTC()
	const q = `
UPDATE call_records
SET status = $1,
    short_summary = $2,
    raw_call_outcome = $3,
    transcript = $4,
    recording_url = $5,
    extracted_location = $6,
    extracted_availability = $7,
    updated_at = $8
WHERE provider_call_id = $9
`
	res, err := s.db.ExecContext(ctx, q,
		r.Status,
		r.ShortSummary,
		r.RawCallOutcome,
		r.Transcript,
		r.RecordingURL,
		r.ExtractedLocation,
		r.ExtractedAvailability,
		now,
		providerCallID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountCallsSince(ctx context.Context, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM call_records WHERE last_called_at >= $1`
	var n int
	if err := s.db.QueryRowContext(ctx, q, since.UTC()).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]CallRecord, error) {
	const q = `SELECT ` + recordColumns + ` FROM call_records ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (CallRecord, error) {
	var rec CallRecord
	var lastCalled sql.NullTime
	err := row.Scan(
		&rec.ID,
		&rec.UniqueRecordID,
		&rec.FirstName,
		&rec.LastName,
		&rec.PhoneE164,
		&rec.ProviderCallID,
		&rec.Status,
		&rec.AttemptCount,
		&lastCalled,
		&rec.ShortSummary,
		&rec.RawCallOutcome,
		&rec.Transcript,
		&rec.RecordingURL,
		&rec.ExtractedLocation,
		&rec.ExtractedAvailability,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return CallRecord{}, err
	}
	if lastCalled.Valid {
		t := lastCalled.Time
		rec.LastCalledAt = &t
	}
	return rec, nil
}
