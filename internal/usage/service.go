// Package usage meters placed calls against a monthly per-workspace quota.
//
// Invariants:
// - No counter update without a ledger entry
// - Ledger is append-only (immutable)
// - Consume runs in a DB transaction with the counter row locked
package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dialout/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("usage: not found")
	ErrQuotaExceeded   = errors.New("usage: monthly call quota exceeded")
	ErrInvalidArgument = errors.New("usage: invalid argument")
)

// ConsumeRequest records one quota consumption.
type ConsumeRequest struct {
	Units          int64  `json:"units"`
	ExternalRef    string `json:"external_ref,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Service provides quota operations over Postgres.
type Service struct {
	db *sql.DB
	// defaultLimit seeds the counter row the first time a workspace
	// consumes in a new period.
	defaultLimit int64
	clock        func() time.Time
}

func NewService(db *sql.DB, defaultLimit int64) *Service {
	return &Service{db: db, defaultLimit: defaultLimit, clock: time.Now}
}

// GetStatus returns the current-period quota for a workspace. A workspace
// that has not consumed this period reports zero usage at the default limit.
func (s *Service) GetStatus(ctx context.Context, workspaceID string) (QuotaStatus, error) {
	if workspaceID == "" {
		return QuotaStatus{}, ErrInvalidArgument
	}
	period := PeriodOf(s.clock())
	st, err := getStatus(ctx, s.db, workspaceID, period)
	if errors.Is(err, ErrNotFound) {
		return QuotaStatus{WorkspaceID: workspaceID, Period: period, LimitUnits: s.defaultLimit}, nil
	}
	return st, err
}

// Consume records req against the workspace's current-period quota.
// Replayed idempotency keys return the existing entry without consuming
// again. ErrQuotaExceeded is returned when the period has no headroom.
func (s *Service) Consume(ctx context.Context, workspaceID string, req ConsumeRequest) (UsageEntry, QuotaStatus, error) {
	if workspaceID == "" || req.IdempotencyKey == "" {
		return UsageEntry{}, QuotaStatus{}, ErrInvalidArgument
	}
	if req.Units <= 0 {
		return UsageEntry{}, QuotaStatus{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	period := PeriodOf(now)
	entryID := uuid.NewString()

	var outEntry UsageEntry
	var outStatus QuotaStatus

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		st, err := lockCounter(ctx, tx, workspaceID, period, s.defaultLimit, now)
		if err != nil {
			return err
		}

		if existing, ok, err := findEntryByIdempotency(ctx, tx, workspaceID, req.IdempotencyKey); err != nil {
			return err
		} else if ok {
			outEntry = existing
			outStatus = st
			return nil
		}

		if st.UsedUnits+req.Units > st.LimitUnits {
			return ErrQuotaExceeded
		}

		entry := UsageEntry{
			ID:             entryID,
			WorkspaceID:    workspaceID,
			Period:         period,
			Units:          req.Units,
			ExternalRef:    req.ExternalRef,
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      now,
		}
		if err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}

		st, err = applyCounterDelta(ctx, tx, workspaceID, period, req.Units, now)
		if err != nil {
			return err
		}
		outEntry = entry
		outStatus = st
		return nil
	})

	return outEntry, outStatus, err
}
