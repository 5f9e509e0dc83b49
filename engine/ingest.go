package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"csv_pii_tokenizer/models"
)

// ReadCSV parses CSV with a header row into a Table. Blank lines are skipped,
// short records are padded with empty strings and long records are rejected.
func ReadCSV(r io.Reader) (*models.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	seen := make(map[string]struct{}, len(header))
	for _, h := range header {
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, h)
		}
		seen[h] = struct{}{}
	}

	t := models.NewTable(header)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("%w: record %d has %d fields, header has %d",
				ErrMalformedRow, len(t.Rows)+1, len(rec), len(header))
		}
		row := make(models.Row, len(header))
		for i, c := range header {
			if i < len(rec) {
				row[c] = rec[i]
			} else {
				row[c] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlank(rec []string) bool {
	return len(rec) == 1 && rec[0] == ""
}
