package runlog

import (
	"context"
	"testing"
	"time"
)

func TestService_StampsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }

	err := svc.Append(context.Background(), Event{
		RunID:  "run1",
		Action: ActionCallPlaced,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Fatalf("expected generated id")
	}
	if e.UniqueRecordID != SystemRecordID {
		t.Fatalf("expected system record id default, got %q", e.UniqueRecordID)
	}
	if !e.CreatedAt.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Fatalf("unexpected created_at: %v", e.CreatedAt)
	}
}

func TestService_RejectsInvalid(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Append(context.Background(), Event{Action: "x"}); err != ErrInvalidEvent {
		t.Fatalf("missing run_id should be invalid, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{RunID: "r"}); err != ErrInvalidEvent {
		t.Fatalf("missing action should be invalid, got %v", err)
	}
}

func TestService_ListByRun(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	_ = svc.Append(context.Background(), Event{RunID: "a", Action: "x"})
	_ = svc.Append(context.Background(), Event{RunID: "b", Action: "y"})
	_ = svc.Append(context.Background(), Event{RunID: "a", Action: "z"})

	got, err := svc.ListByRun(context.Background(), "a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events for run a, got %d", len(got))
	}
}
