package records

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("records: not found")

// Store is the persistence contract for call records.
//
// Rules:
// - UpsertCandidate is idempotent on unique_record_id.
// - GetPendingRecords returns only retryable statuses, within the retry
//   ceiling, ordered oldest-created-first.
// - MarkCallStarted and UpdateCallResult are row-level atomic updates;
//   the store serializes concurrent writes to the same record.
type Store interface {
	UpsertCandidate(ctx context.Context, rec CallRecord) error
	GetPendingRecords(ctx context.Context, maxRetries, limit int) ([]CallRecord, error)
	GetByUniqueID(ctx context.Context, uniqueRecordID string) (CallRecord, error)
	GetByProviderCallID(ctx context.Context, providerCallID string) (CallRecord, error)
	MarkCallStarted(ctx context.Context, uniqueRecordID, providerCallID string) error
	UpdateCallResult(ctx context.Context, providerCallID string, res CallResult) error
	CountCallsSince(ctx context.Context, since time.Time) (int, error)
	ListAll(ctx context.Context) ([]CallRecord, error)
}
