package scheduler

import (
	"context"
	"testing"
	"time"

	"dialout/internal/records"
)

func schedulerAt(t *testing.T, now time.Time) *Scheduler {
	t.Helper()
	cfg := testConfig()
	cfg.WindowStart = "09:00"
	cfg.WindowEnd = "17:30"
	return newTestScheduler(t, cfg, records.NewMemoryStore(), &fakeDialer{}, now)
}

func TestInCallingWindow_BoundariesInclusive(t *testing.T) {
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		clock string
		want  bool
	}{
		{"08:59", false},
		{"09:00", true},
		{"12:00", true},
		{"17:30", true},
		{"17:31", false},
	}
	for _, tc := range cases {
		h, m, err := ParseHHMM(tc.clock)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.clock, err)
		}
		now := day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
		s := schedulerAt(t, now)
		if got := s.InCallingWindow(); got != tc.want {
			t.Fatalf("at %s: in window = %v, want %v", tc.clock, got, tc.want)
		}
	}
}

func TestNextWindowOpen(t *testing.T) {
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	// Before the window opens: today at 09:00.
	s := schedulerAt(t, day.Add(6*time.Hour))
	next := s.NextWindowOpen(day.Add(6 * time.Hour))
	if want := day.Add(9 * time.Hour); !next.Equal(want) {
		t.Fatalf("before window: next open %v, want %v", next, want)
	}

	// After the window closes: tomorrow at 09:00.
	evening := day.Add(20 * time.Hour)
	s = schedulerAt(t, evening)
	next = s.NextWindowOpen(evening)
	if want := day.AddDate(0, 0, 1).Add(9 * time.Hour); !next.Equal(want) {
		t.Fatalf("after window: next open %v, want %v", next, want)
	}
}

func TestWaitForWindow_ReturnsImmediatelyInsideWindow(t *testing.T) {
	s := schedulerAt(t, time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.WaitForWindow(ctx); err != nil {
		t.Fatalf("wait inside window: %v", err)
	}
}

func TestWaitForWindow_CancellableOutsideWindow(t *testing.T) {
	s := schedulerAt(t, time.Date(2026, 8, 26, 23, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.WaitForWindow(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("WaitForWindow did not honor cancellation")
	}
}

func TestParseHHMM_Rejections(t *testing.T) {
	bad := []string{"", "9", "24:00", "09:60", "ab:cd", "09-00"}
	for _, v := range bad {
		if _, _, err := ParseHHMM(v); err == nil {
			t.Fatalf("expected error for %q", v)
		}
	}
	h, m, err := ParseHHMM(" 07:05 ")
	if err != nil || h != 7 || m != 5 {
		t.Fatalf("trimmed parse failed: %d %d %v", h, m, err)
	}
}
