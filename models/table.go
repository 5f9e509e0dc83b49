package models

import (
	"fmt"
)

// Row maps a column name to its cell text.
type Row map[string]string

// Table is an ordered set of columns plus rows keyed by those columns.
// Every row is expected to carry an entry for every column.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...), Rows: []Row{}}
}

// HasColumn reports whether name is a declared column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Clone returns a deep copy; rows and column slice are never shared.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Records flattens the rows into positional records in column order.
// A missing cell is written as an empty string.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rec := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			rec[j] = r[c]
		}
		out[i] = rec
	}
	return out
}

// TableFromRecords is the inverse of Records.
func TableFromRecords(columns []string, records [][]string) (*Table, error) {
	t := NewTable(columns)
	t.Rows = make([]Row, 0, len(records))
	for i, rec := range records {
		if len(rec) != len(columns) {
			return nil, fmt.Errorf("record %d has %d fields, want %d", i, len(rec), len(columns))
		}
		row := make(Row, len(columns))
		for j, c := range columns {
			row[c] = rec[j]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
