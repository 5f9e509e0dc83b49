package engine

import (
	"sort"

	"csv_pii_tokenizer/common"
	"csv_pii_tokenizer/models"
)

// DefaultDetectRatio is the share of non-empty cells that must match a spec
// before a column is suggested.
const DefaultDetectRatio = 0.8

type ColumnSuggestion struct {
	Column   string  `json:"column"`
	Type     string  `json:"pii_type"`
	Matched  int     `json:"matched"`
	NonEmpty int     `json:"non_empty"`
	Ratio    float64 `json:"ratio"`
}

// DetectColumns suggests columns that look like personal identifiers.
// Only the best-matching spec per column is reported.
func DetectColumns(table *models.Table, minRatio float64) []ColumnSuggestion {
	specs := common.Specs()
	out := []ColumnSuggestion{}
	if len(specs) == 0 {
		return out
	}
	for _, col := range table.Columns {
		nonEmpty := 0
		matched := make([]int, len(specs))
		for _, row := range table.Rows {
			v := row[col]
			if v == "" {
				continue
			}
			nonEmpty++
			for i, s := range specs {
				if s.Matches(v) {
					matched[i]++
				}
			}
		}
		if nonEmpty == 0 {
			continue
		}
		best := -1
		for i := range specs {
			if best < 0 || matched[i] > matched[best] {
				best = i
			}
		}
		ratio := float64(matched[best]) / float64(nonEmpty)
		if matched[best] == 0 || ratio < minRatio {
			continue
		}
		out = append(out, ColumnSuggestion{
			Column:   col,
			Type:     specs[best].TypeName,
			Matched:  matched[best],
			NonEmpty: nonEmpty,
			Ratio:    ratio,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio > out[j].Ratio })
	return out
}
