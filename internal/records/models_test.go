package records

import (
	"context"
	"testing"
	"time"
)

func TestDisposition_Retryable(t *testing.T) {
	retryable := map[Disposition]bool{
		DispositionPending:  true,
		DispositionNoAnswer: true,
		DispositionBusy:     true,
		DispositionFailed:   true,
	}
	for _, d := range AllDispositions {
		if got := d.Retryable(); got != retryable[d] {
			t.Fatalf("%s: retryable = %v, want %v", d, got, retryable[d])
		}
	}
}

func TestDisposition_Valid(t *testing.T) {
	if !DispositionVoicemail.Valid() {
		t.Fatalf("VOICEMAIL should be valid")
	}
	if Disposition("SOMETHING_ELSE").Valid() {
		t.Fatalf("unknown value should be invalid")
	}
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.UpsertCandidate(ctx, CallRecord{UniqueRecordID: "r1", PhoneE164: "+447911111111"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertCandidate(ctx, CallRecord{UniqueRecordID: "r1", PhoneE164: "+447922222222"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row after duplicate upsert, got %d", len(all))
	}
	if all[0].PhoneE164 != "+447922222222" {
		t.Fatalf("expected phone from second insert, got %q", all[0].PhoneE164)
	}
}

func TestMemoryStore_PendingExcludesOverRetryCeiling(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.UpsertCandidate(ctx, CallRecord{UniqueRecordID: "fresh", PhoneE164: "+447911111111"})
	_ = store.UpsertCandidate(ctx, CallRecord{UniqueRecordID: "spent", PhoneE164: "+447922222222"})

	// Three attempts pushes "spent" past a retry ceiling of 2.
	for i := 0; i < 3; i++ {
		if err := store.MarkCallStarted(ctx, "spent", "call-x"); err != nil {
			t.Fatalf("mark started: %v", err)
		}
	}

	pending, err := store.GetPendingRecords(ctx, 2, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].UniqueRecordID != "fresh" {
		t.Fatalf("expected only the fresh record, got %+v", pending)
	}
}

func TestMemoryStore_PendingOrderedOldestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	times := []time.Time{base.Add(2 * time.Minute), base, base.Add(time.Minute)}
	ids := []string{"c", "a", "b"}
	for i, id := range ids {
		tt := times[i]
		store.Clock = func() time.Time { return tt }
		_ = store.UpsertCandidate(ctx, CallRecord{UniqueRecordID: id, PhoneE164: "+44791100000" + id})
	}

	pending, err := store.GetPendingRecords(ctx, 2, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if pending[i].UniqueRecordID != id {
			t.Fatalf("position %d: got %q, want %q", i, pending[i].UniqueRecordID, id)
		}
	}
}

func TestMemoryStore_AttemptCountMonotonic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.UpsertCandidate(ctx, CallRecord{UniqueRecordID: "r1", PhoneE164: "+447911111111"})

	for want := 1; want <= 3; want++ {
		if err := store.MarkCallStarted(ctx, "r1", "call-1"); err != nil {
			t.Fatalf("mark started: %v", err)
		}
		rec, err := store.GetByUniqueID(ctx, "r1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if rec.AttemptCount != want {
			t.Fatalf("attempt_count = %d, want %d", rec.AttemptCount, want)
		}
		if rec.LastCalledAt == nil {
			t.Fatalf("last_called_at not set")
		}
	}
}

func TestMemoryStore_LookupByProviderCallID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.UpsertCandidate(ctx, CallRecord{UniqueRecordID: "r1", PhoneE164: "+447911111111"})
	_ = store.MarkCallStarted(ctx, "r1", "prov-42")

	rec, err := store.GetByProviderCallID(ctx, "prov-42")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.UniqueRecordID != "r1" {
		t.Fatalf("wrong record: %q", rec.UniqueRecordID)
	}

	if _, err := store.GetByProviderCallID(ctx, ""); err != ErrNotFound {
		t.Fatalf("empty provider id should be not found, got %v", err)
	}
}
