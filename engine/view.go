package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"csv_pii_tokenizer/models"
)

const DefaultPerPage = 10

// PerPageOptions are the page sizes a view accepts; anything else falls back
// to DefaultPerPage.
var PerPageOptions = []int{10, 20, 50, 100}

type ViewOptions struct {
	Page    int
	PerPage int
	// Filters maps a column to a case-insensitive substring; all must match.
	Filters    map[string]string
	SortColumn string
	Desc       bool
}

type IndexedRow struct {
	Index  int        `json:"index"`
	Values models.Row `json:"values"`
}

type Page struct {
	Columns    []string     `json:"columns"`
	Rows       []IndexedRow `json:"rows"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalRows  int          `json:"total_rows"`
	TotalPages int          `json:"total_pages"`
}

// View filters, sorts and paginates table. Row indices in the result refer to
// positions in the unfiltered table.
func View(table *models.Table, opts ViewOptions) (*Page, error) {
	for c := range opts.Filters {
		if !table.HasColumn(c) {
			return nil, fmt.Errorf("%w: filter on %q", ErrInvalidColumn, c)
		}
	}
	if opts.SortColumn != "" && !table.HasColumn(opts.SortColumn) {
		return nil, fmt.Errorf("%w: sort on %q", ErrInvalidColumn, opts.SortColumn)
	}
	if !lo.Contains(PerPageOptions, opts.PerPage) {
		opts.PerPage = DefaultPerPage
	}
	if opts.Page < 1 {
		opts.Page = 1
	}

	needles := make(map[string]string, len(opts.Filters))
	for c, f := range opts.Filters {
		if f != "" {
			needles[c] = strings.ToLower(f)
		}
	}
	idx := make([]int, 0, len(table.Rows))
	for i, row := range table.Rows {
		if matchesFilters(row, needles) {
			idx = append(idx, i)
		}
	}

	if opts.SortColumn != "" {
		col := opts.SortColumn
		sort.SliceStable(idx, func(a, b int) bool {
			va, vb := table.Rows[idx[a]][col], table.Rows[idx[b]][col]
			if opts.Desc {
				return va > vb
			}
			return va < vb
		})
	}

	p := &Page{
		Columns:    append([]string(nil), table.Columns...),
		Rows:       []IndexedRow{},
		Page:       opts.Page,
		PerPage:    opts.PerPage,
		TotalRows:  len(idx),
		TotalPages: (len(idx) + opts.PerPage - 1) / opts.PerPage,
	}
	// Compare pages before multiplying: a huge page number would overflow.
	if opts.Page > p.TotalPages {
		return p, nil
	}
	start := (opts.Page - 1) * opts.PerPage
	end := min(start+opts.PerPage, len(idx))
	for _, i := range idx[start:end] {
		p.Rows = append(p.Rows, IndexedRow{Index: i, Values: table.Rows[i].Clone()})
	}
	return p, nil
}

func matchesFilters(row models.Row, needles map[string]string) bool {
	for c, n := range needles {
		if !strings.Contains(strings.ToLower(row[c]), n) {
			return false
		}
	}
	return true
}

// RowDetail returns a copy of the row at index.
func RowDetail(table *models.Table, index int) (models.Row, error) {
	if index < 0 || index >= len(table.Rows) {
		return nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, index)
	}
	return table.Rows[index].Clone(), nil
}
