// Package export writes campaign results back out as CSV and computes
// per-run summaries.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"dialout/internal/ingest"
	"dialout/internal/records"
)

// Options controls the results CSV shape.
type Options struct {
	// IncludeTranscript appends a transcript column; transcripts can be
	// large, so they are opt-in.
	IncludeTranscript bool
}

var resultColumns = []string{
	"unique_record_id",
	"first_name",
	"last_name",
	"phone_e164",
	"status",
	"attempt_count",
	"last_called_at",
	"short_summary",
	"raw_call_outcome",
	"extracted_location",
	"extracted_availability",
	"recording_url",
}

// WriteResults writes records as a results CSV with a fixed column order.
func WriteResults(w io.Writer, recs []records.CallRecord, opts Options) error {
	cw := csv.NewWriter(w)

	header := resultColumns
	if opts.IncludeTranscript {
		header = append(append([]string{}, resultColumns...), "transcript")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range recs {
		lastCalled := ""
		if r.LastCalledAt != nil {
			lastCalled = r.LastCalledAt.UTC().Format("2006-01-02 15:04:05")
		}
		row := []string{
			r.UniqueRecordID,
			r.FirstName,
			r.LastName,
			r.PhoneE164,
			string(r.Status),
			strconv.Itoa(r.AttemptCount),
			lastCalled,
			r.ShortSummary,
			r.RawCallOutcome,
			r.ExtractedLocation,
			r.ExtractedAvailability,
			r.RecordingURL,
		}
		if opts.IncludeTranscript {
			row = append(row, r.Transcript)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResultsFile is WriteResults to a file path.
func WriteResultsFile(path string, recs []records.CallRecord, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteResults(f, recs, opts); err != nil {
		return err
	}
	return f.Close()
}

// WriteRejected writes rows the ingestion pipeline rejected, with the
// rejection reason first so operators can filter on it.
func WriteRejected(w io.Writer, rejected []ingest.RejectedRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row_number", "reason", "unique_record_id", "phone", "first_name", "last_name"}); err != nil {
		return err
	}
	for _, r := range rejected {
		if err := cw.Write([]string{
			strconv.Itoa(r.RowNumber),
			r.Reason,
			r.Fields["unique_record_id"],
			r.Fields["phone"],
			r.Fields["first_name"],
			r.Fields["last_name"],
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRejectedFile is WriteRejected to a file path. No file is created
// when there is nothing to report.
func WriteRejectedFile(path string, rejected []ingest.RejectedRow) error {
	if len(rejected) == 0 {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteRejected(f, rejected); err != nil {
		return err
	}
	return f.Close()
}

// Summary is a per-disposition breakdown of a record set.
type Summary struct {
	Total         int
	ByDisposition map[records.Disposition]int
	TotalAttempts int
	Resolved      int // records no longer pending or retry-eligible
}

// Summarize computes a Summary over recs.
func Summarize(recs []records.CallRecord) Summary {
	s := Summary{ByDisposition: map[records.Disposition]int{}}
	for _, r := range recs {
		s.Total++
		s.ByDisposition[r.Status]++
		s.TotalAttempts += r.AttemptCount
		if !r.Status.Retryable() {
			s.Resolved++
		}
	}
	return s
}

// Render formats the summary for terminal output, dispositions in
// descending count order.
func (s Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "Records:  %d\n", s.Total)
	fmt.Fprintf(w, "Attempts: %d\n", s.TotalAttempts)
	fmt.Fprintf(w, "Resolved: %d\n", s.Resolved)

	type kv struct {
		d records.Disposition
		n int
	}
	rows := make([]kv, 0, len(s.ByDisposition))
	for d, n := range s.ByDisposition {
		rows = append(rows, kv{d, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].n != rows[j].n {
			return rows[i].n > rows[j].n
		}
		return rows[i].d < rows[j].d
	})
	for _, r := range rows {
		fmt.Fprintf(w, "  %-22s %d\n", r.d, r.n)
	}
}
