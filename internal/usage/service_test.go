package usage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

// Consume is implemented with Postgres-specific SQL (SELECT ... FOR UPDATE),
// so end-to-end quota behavior is covered by integration tests against
// Postgres. What we unit-test here is input validation and the pure
// projection math.

func TestConsumeRejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil), 100)
	ctx := context.Background()

	cases := []struct {
		name        string
		workspaceID string
		req         ConsumeRequest
	}{
		{"missing workspace", "", ConsumeRequest{Units: 1, IdempotencyKey: "k"}},
		{"missing idempotency key", "ws", ConsumeRequest{Units: 1}},
		{"zero units", "ws", ConsumeRequest{Units: 0, IdempotencyKey: "k"}},
		{"negative units", "ws", ConsumeRequest{Units: -5, IdempotencyKey: "k"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Consume(ctx, tc.workspaceID, tc.req)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestGetStatusRejectsMissingWorkspace(t *testing.T) {
	svc := NewService((*sql.DB)(nil), 100)
	if _, err := svc.GetStatus(context.Background(), ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestQuotaRemaining(t *testing.T) {
	cases := []struct {
		limit, used, want int64
	}{
		{100, 0, 100},
		{100, 99, 1},
		{100, 100, 0},
		{100, 150, 0},
	}
	for _, tc := range cases {
		q := QuotaStatus{LimitUnits: tc.limit, UsedUnits: tc.used}
		if got := q.Remaining(); got != tc.want {
			t.Errorf("Remaining(limit=%d, used=%d) = %d, want %d", tc.limit, tc.used, got, tc.want)
		}
	}
}

func TestPeriodOf(t *testing.T) {
	// Period boundaries are UTC: late evening in a western zone is already
	// next month in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2026, 8, 31, 20, 30, 0, 0, loc)
	if got := PeriodOf(ts); got != "2026-09" {
		t.Fatalf("PeriodOf = %q, want 2026-09", got)
	}
}
