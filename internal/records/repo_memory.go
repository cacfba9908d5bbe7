package records

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store useful for tests.
// It is not intended for production use.
type MemoryStore struct {
	mu      sync.Mutex
	rows    map[string]*CallRecord
	nextID  int64
	Clock   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*CallRecord), Clock: time.Now}
}

func (m *MemoryStore) UpsertCandidate(ctx context.Context, rec CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Clock().UTC()

	if existing, ok := m.rows[rec.UniqueRecordID]; ok {
		existing.PhoneE164 = rec.PhoneE164
		existing.FirstName = rec.FirstName
		existing.LastName = rec.LastName
		existing.UpdatedAt = now
		return nil
	}

	m.nextID++
	stored := rec
	stored.ID = m.nextID
	if stored.Status == "" {
		stored.Status = DispositionPending
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.rows[rec.UniqueRecordID] = &stored
	return nil
}

func (m *MemoryStore) GetPendingRecords(ctx context.Context, maxRetries, limit int) ([]CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []CallRecord
	for _, r := range m.rows {
		if r.Status.Retryable() && r.AttemptCount <= maxRetries {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetByUniqueID(ctx context.Context, uniqueRecordID string) (CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[uniqueRecordID]; ok {
		return *r, nil
	}
	return CallRecord{}, ErrNotFound
}

func (m *MemoryStore) GetByProviderCallID(ctx context.Context, providerCallID string) (CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if providerCallID == "" {
		return CallRecord{}, ErrNotFound
	}
	for _, r := range m.rows {
		if r.ProviderCallID == providerCallID {
			return *r, nil
		}
	}
	return CallRecord{}, ErrNotFound
}

func (m *MemoryStore) MarkCallStarted(ctx context.Context, uniqueRecordID, providerCallID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[uniqueRecordID]
	if !ok {
		return ErrNotFound
	}
	now := m.Clock().UTC()
	r.ProviderCallID = providerCallID
	r.AttemptCount++
	r.LastCalledAt = &now
	r.UpdatedAt = now
	return nil
}

func (m *MemoryStore) UpdateCallResult(ctx context.Context, providerCallID string, res CallResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ProviderCallID == providerCallID {
			r.Status = res.Status
			r.ShortSummary = res.ShortSummary
			r.RawCallOutcome = res.RawCallOutcome
			r.Transcript = res.Transcript
			r.RecordingURL = res.RecordingURL
			r.ExtractedLocation = res.ExtractedLocation
			r.ExtractedAvailability = res.ExtractedAvailability
			r.UpdatedAt = m.Clock().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) CountCallsSince(ctx context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.LastCalledAt != nil && !r.LastCalledAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
