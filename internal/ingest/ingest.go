// Package ingest reads candidate CSVs: header mapping, validation, phone
// normalization, deduplication, and suppression-list screening.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"dialout/internal/phone"
)

// Candidate is one valid ingested row.
type Candidate struct {
	UniqueRecordID string
	FirstName      string
	LastName       string
	PhoneRaw       string
	PhoneE164      string
	Email          string
}

// RejectedRow carries an input row that failed validation, for audit output.
type RejectedRow struct {
	RowNumber int
	Reason    string
	Fields    map[string]string
}

// Rejection reasons.
const (
	ReasonMissingRecordID   = "missing_record_id"
	ReasonDuplicateRecordID = "duplicate_record_id"
	ReasonMissingPhone      = "missing_phone"
	ReasonInvalidPhone      = "invalid_phone"
	ReasonDuplicatePhone    = "duplicate_phone"
	ReasonSuppressed        = "suppressed_dnc"
)

var requiredColumns = []string{"unique_record_id", "phone"}

// Pipeline validates and normalizes candidate rows.
type Pipeline struct {
	Normalizer phone.Normalizer
	Suppressed map[string]struct{}
	Log        *slog.Logger
}

func NewPipeline(n phone.Normalizer, suppressed map[string]struct{}, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if suppressed == nil {
		suppressed = map[string]struct{}{}
	}
	return &Pipeline{Normalizer: n, Suppressed: suppressed, Log: log}
}

// IngestFile reads and processes a candidate CSV from disk.
func (p *Pipeline) IngestFile(path string) ([]Candidate, []RejectedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return p.Ingest(f)
}

// Ingest reads and processes a candidate CSV. Header matching is
// case-insensitive with spaces treated as underscores. Rows failing
// validation are returned as rejections, not errors; only a structurally
// unreadable file errors.
func (p *Pipeline) Ingest(r io.Reader) ([]Candidate, []RejectedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: empty or malformed CSV: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF") // BOM from Excel exports

	colIndex := map[string]int{}
	for i, col := range header {
		colIndex[normalizeHeader(col)] = i
	}
	for _, req := range requiredColumns {
		if _, ok := colIndex[req]; !ok {
			return nil, nil, fmt.Errorf("ingest: CSV missing required column %q (found: %v)", req, header)
		}
	}

	var (
		valid      []Candidate
		rejected   []RejectedRow
		seenIDs    = map[string]struct{}{}
		seenPhones = map[string]struct{}{}
	)

	field := func(row []string, name string) string {
		i, ok := colIndex[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for rowNum := 2; ; rowNum++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: row %d: %w", rowNum, err)
		}

		reject := func(reason string) {
			rejected = append(rejected, RejectedRow{
				RowNumber: rowNum,
				Reason:    reason,
				Fields:    rowToMap(header, row),
			})
		}

		recordID := field(row, "unique_record_id")
		phoneRaw := field(row, "phone")

		if recordID == "" {
			reject(ReasonMissingRecordID)
			continue
		}
		if _, dup := seenIDs[recordID]; dup {
			reject(ReasonDuplicateRecordID)
			continue
		}
		if phoneRaw == "" {
			reject(ReasonMissingPhone)
			continue
		}

		e164, ok := p.Normalizer.Normalize(phoneRaw)
		if !ok {
			reject(ReasonInvalidPhone)
			continue
		}
		if _, dup := seenPhones[e164]; dup {
			reject(ReasonDuplicatePhone)
			continue
		}
		if _, hit := p.Suppressed[e164]; hit {
			reject(ReasonSuppressed)
			continue
		}

		valid = append(valid, Candidate{
			UniqueRecordID: recordID,
			FirstName:      field(row, "first_name"),
			LastName:       field(row, "last_name"),
			PhoneRaw:       phoneRaw,
			PhoneE164:      e164,
			Email:          field(row, "email"),
		})
		seenIDs[recordID] = struct{}{}
		seenPhones[e164] = struct{}{}
	}

	p.Log.Info("csv ingestion complete",
		"valid", len(valid),
		"rejected", len(rejected),
		"suppressed_entries", len(p.Suppressed),
	)
	return valid, rejected, nil
}

func normalizeHeader(col string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(col)), " ", "_")
}

func rowToMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(row) {
			m[normalizeHeader(col)] = row[i]
		}
	}
	return m
}
