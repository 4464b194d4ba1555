package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/argus-triage/argus-go/internal/event"
)

// LoadCSV reads events from a CSV export with a header row. Rows that fail
// normalization (bad timestamp, missing url/source_ip) are skipped and
// counted; the batch continues. Gzipped input is detected transparently.
func LoadCSV(r io.Reader) ([]*event.Event, int, error) {
	r, err := maybeGunzip(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}

	var (
		events  []*event.Event
		skipped int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		raw := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			// Empty cells are missing fields, not empty strings: pandas-style
			// exports leave blanks for None.
			if row[i] != "" {
				raw[col] = row[i]
			}
		}

		ev, err := Normalize(raw)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

// LoadJSON reads events from a JSON array of objects. Per-record failures
// skip the record, like LoadCSV. Gzipped input is detected transparently.
func LoadJSON(r io.Reader) ([]*event.Event, int, error) {
	r, err := maybeGunzip(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read json: %w", err)
	}

	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, 0, fmt.Errorf("decode json: %w", err)
	}

	var (
		events  []*event.Event
		skipped int
	)
	for _, raw := range rows {
		ev, err := Normalize(raw)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

// maybeGunzip sniffs the stream for a gzip magic header and wraps it in a
// decompressor when present.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		// Too short to be gzip; let the caller's parser report the real error.
		return br, nil
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}
