package engine

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"csv_pii_tokenizer/models"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Export writes table to w in the given format ("csv" or "json").
func Export(w io.Writer, table *models.Table, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV:
		return WriteCSV(w, table)
	case FormatJSON:
		return WriteJSON(w, table)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteCSV writes the header followed by every row in column order.
func WriteCSV(w io.Writer, table *models.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(table.Records()); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// WriteJSON writes an array of objects whose keys follow column order,
// indented by two spaces. HTML characters are written literally.
func WriteJSON(w io.Writer, table *models.Table) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, row := range table.Rows {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, c := range table.Columns {
			if j > 0 {
				buf.WriteString(",")
			}
			k, err := json.MarshalNoEscape(c)
			if err != nil {
				return fmt.Errorf("encode column name: %w", err)
			}
			v, err := json.MarshalNoEscape(row[c])
			if err != nil {
				return fmt.Errorf("encode cell: %w", err)
			}
			buf.WriteString("\n    ")
			buf.Write(k)
			buf.WriteString(": ")
			buf.Write(v)
		}
		if len(table.Columns) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteString("}")
	}
	if len(table.Rows) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}
