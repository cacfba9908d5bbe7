package runlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for run events.
// It MUST be append-only; no Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByRun(ctx context.Context, runID string) ([]Event, error)
}

var ErrInvalidEvent = errors.New("runlog: invalid event")

// Service validates and stamps run events before appending them.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("runlog: repository not configured")
	}
	if e.RunID == "" || e.Action == "" {
		return ErrInvalidEvent
	}
	if e.UniqueRecordID == "" {
		e.UniqueRecordID = SystemRecordID
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) ListByRun(ctx context.Context, runID string) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("runlog: repository not configured")
	}
	return s.repo.ListByRun(ctx, runID)
}
