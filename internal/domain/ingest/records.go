// Package ingest loads historical ticket resolutions into the vector store:
// a batch job for CSV exports and a bus-driven indexer for tickets resolved
// at runtime.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Record is one historical ticket row from the CSV export.
type Record struct {
	TicketID       string
	ProblemText    string
	ResolutionText string
	Language       string
	Category       string
}

// csv column order of the export
var expectedHeader = []string{"ticket_id", "problem_text", "resolution_text", "language", "category"}

// ReadRecords parses the CSV export. The header row is validated, rows with
// the wrong column count are rejected by the csv reader.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(expectedHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, want := range expectedHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return nil, fmt.Errorf("unexpected csv header %q, want %q", header[i], want)
		}
	}

	var out []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		out = append(out, Record{
			TicketID:       strings.TrimSpace(row[0]),
			ProblemText:    row[1],
			ResolutionText: row[2],
			Language:       strings.TrimSpace(row[3]),
			Category:       strings.TrimSpace(row[4]),
		})
	}
	return out, nil
}

// embeddingText picks the text to embed for a record: the problem when
// usable, else the resolution. Records with neither are skipped.
func embeddingText(rec Record) (string, bool) {
	if validText(rec.ProblemText) {
		return strings.TrimSpace(rec.ProblemText), true
	}
	if validText(rec.ResolutionText) {
		return strings.TrimSpace(rec.ResolutionText), true
	}
	return "", false
}

// validText rejects empty strings and the null-ish placeholders that CSV
// exports of the ticket system produce.
func validText(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "null", "none":
		return false
	}
	return true
}
