package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"dialout/internal/ingest"
	"dialout/internal/records"
)

func sampleRecords() []records.CallRecord {
	called := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)
	return []records.CallRecord{
		{
			UniqueRecordID: "r-1",
			FirstName:      "Ada",
			LastName:       "Lovelace",
			PhoneE164:      "+447911123456",
			Status:         records.DispositionActiveLooking,
			AttemptCount:   1,
			LastCalledAt:   &called,
			ShortSummary:   "Interested, available next month",
			RawCallOutcome: "customer-ended-call",
			Transcript:     "AI: Hello...\nUser: Hi...",
		},
		{
			UniqueRecordID: "r-2",
			PhoneE164:      "+447911123457",
			Status:         records.DispositionPending,
		},
	}
}

func TestWriteResultsColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, sampleRecords(), Options{}); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	wantHeader := strings.Join(resultColumns, ",")
	if got := strings.Join(rows[0], ","); got != wantHeader {
		t.Fatalf("header = %q, want %q", got, wantHeader)
	}
	if rows[1][0] != "r-1" || rows[1][4] != "ACTIVE_LOOKING" || rows[1][5] != "1" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[1][6] != "2026-08-26 14:30:00" {
		t.Fatalf("last_called_at = %q", rows[1][6])
	}
	if rows[2][6] != "" {
		t.Fatalf("never-called record should have empty last_called_at, got %q", rows[2][6])
	}
}

func TestWriteResultsTranscriptOptIn(t *testing.T) {
	var withT, withoutT bytes.Buffer
	if err := WriteResults(&withT, sampleRecords(), Options{IncludeTranscript: true}); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	if err := WriteResults(&withoutT, sampleRecords(), Options{}); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	if !strings.Contains(withT.String(), "AI: Hello") {
		t.Error("transcript missing when opted in")
	}
	if strings.Contains(withoutT.String(), "AI: Hello") {
		t.Error("transcript present when not opted in")
	}
}

func TestWriteRejected(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRejected(&buf, []ingest.RejectedRow{
		{RowNumber: 3, Reason: ingest.ReasonInvalidPhone, Fields: map[string]string{
			"unique_record_id": "r-9", "phone": "junk",
		}},
	})
	if err != nil {
		t.Fatalf("WriteRejected: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "3" || rows[1][1] != ingest.ReasonInvalidPhone || rows[1][2] != "r-9" {
		t.Fatalf("unexpected rejected output: %v", rows)
	}
}

func TestSummarize(t *testing.T) {
	recs := []records.CallRecord{
		{Status: records.DispositionActiveLooking, AttemptCount: 1},
		{Status: records.DispositionActiveLooking, AttemptCount: 2},
		{Status: records.DispositionNoAnswer, AttemptCount: 3},
		{Status: records.DispositionPending},
	}
	s := Summarize(recs)
	if s.Total != 4 || s.TotalAttempts != 6 {
		t.Fatalf("total=%d attempts=%d", s.Total, s.TotalAttempts)
	}
	if s.ByDisposition[records.DispositionActiveLooking] != 2 {
		t.Fatalf("active_looking count = %d", s.ByDisposition[records.DispositionActiveLooking])
	}
	if s.Resolved != 2 {
		t.Fatalf("resolved = %d, want 2 (no_answer and pending are retry-eligible)", s.Resolved)
	}

	var buf bytes.Buffer
	s.Render(&buf)
	if !strings.Contains(buf.String(), "ACTIVE_LOOKING") {
		t.Fatalf("render output missing disposition: %q", buf.String())
	}
}
