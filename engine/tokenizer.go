package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"

	"csv_pii_tokenizer/common"
	"csv_pii_tokenizer/models"
)

// Stage identifies a phase of a tokenization pass for progress reporting.
type Stage string

const (
	StageDiscover Stage = "discover"
	StageAssign   Stage = "assign"
	StageRewrite  Stage = "rewrite"
)

// ProgressFunc receives the number of items completed since the previous call
// for a stage, plus the stage total. It may be called from several goroutines
// when Workers > 1.
type ProgressFunc func(stage Stage, delta, total int)

// maxCollisionAttempts bounds regeneration when RegenerateOnCollision is set.
const maxCollisionAttempts = 16

type Options struct {
	// Workers > 1 shards discovery and rewrite over row ranges.
	Workers int
	// RegenerateOnCollision retries generation when a token is already owned
	// by a different source value. Off by default: collisions are tolerated.
	// Keyed generators return the same token for a value every time, so no
	// retry is attempted in keyed mode.
	RegenerateOnCollision bool
	Progress              ProgressFunc
}

// Result describes one completed tokenization pass.
type Result struct {
	Table            *models.Table
	TargetColumn     string
	Mode             string
	UniqueValues     int
	SubstitutedCells int
	Collisions       int
}

// DatasetTokenizer runs tokenization passes over whole tables.
// A pass never mutates its input and never exposes its token map.
type DatasetTokenizer struct {
	gen  common.TokenGenerator
	opts Options
}

func NewDatasetTokenizer(gen common.TokenGenerator, opts Options) *DatasetTokenizer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &DatasetTokenizer{gen: gen, opts: opts}
}

// Tokenize returns a tokenized copy of table for targetColumn.
func (t *DatasetTokenizer) Tokenize(table *models.Table, targetColumn string) (*models.Table, error) {
	res, err := t.Run(table, targetColumn)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// Run performs a pass and reports its statistics.
func (t *DatasetTokenizer) Run(table *models.Table, targetColumn string) (*Result, error) {
	if err := Validate(table, targetColumn); err != nil {
		return nil, err
	}
	res := &Result{TargetColumn: targetColumn, Mode: t.gen.Mode()}
	if len(table.Rows) == 0 {
		res.Table = table.Clone()
		return res, nil
	}

	unique := t.discover(table, targetColumn)
	res.UniqueValues = len(unique)

	tokens, collisions := t.assign(unique)
	res.Collisions = collisions

	// tokens is complete and read-only from here on.
	out, substituted := t.rewrite(table, targetColumn, tokens)
	res.Table = out
	res.SubstitutedCells = substituted
	return res, nil
}

// Validate checks the target column and that every row carries every column.
func Validate(table *models.Table, targetColumn string) error {
	if table == nil || !table.HasColumn(targetColumn) {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, targetColumn)
	}
	for i, row := range table.Rows {
		for _, c := range table.Columns {
			if _, ok := row[c]; !ok {
				return fmt.Errorf("%w: row %d missing column %q", ErrMalformedRow, i, c)
			}
		}
	}
	return nil
}

func (t *DatasetTokenizer) report(stage Stage, delta, total int) {
	if t.opts.Progress != nil {
		t.opts.Progress(stage, delta, total)
	}
}

// shards splits [0,n) into at most workers contiguous ranges.
func shards(n, workers int) [][2]int {
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return [][2]int{{0, n}}
	}
	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

// discover returns the unique values of column in sorted order.
func (t *DatasetTokenizer) discover(table *models.Table, column string) []string {
	total := len(table.Rows)
	p := pool.NewWithResults[map[string]struct{}]().WithMaxGoroutines(t.opts.Workers)
	for _, sh := range shards(total, t.opts.Workers) {
		sh := sh
		p.Go(func() map[string]struct{} {
			set := make(map[string]struct{})
			for _, row := range table.Rows[sh[0]:sh[1]] {
				set[row[column]] = struct{}{}
			}
			t.report(StageDiscover, sh[1]-sh[0], total)
			return set
		})
	}
	merged := make(map[string]struct{})
	for _, set := range p.Wait() {
		for v := range set {
			merged[v] = struct{}{}
		}
	}
	values := lo.Keys(merged)
	sort.Strings(values)
	return values
}

// assign generates exactly one token per unique value. Values are visited in
// sorted order so a seeded generator is reproducible regardless of Workers.
func (t *DatasetTokenizer) assign(values []string) (map[string]string, int) {
	tokens := make(map[string]string, len(values))
	owner := make(map[string]string, len(values))
	collisions := 0
	for _, v := range values {
		tok := t.gen.GenerateToken(v)
		if prev, taken := owner[tok]; taken && prev != v {
			if t.opts.RegenerateOnCollision && t.gen.Mode() != common.ModeKeyed {
				for attempt := 0; attempt < maxCollisionAttempts && taken; attempt++ {
					tok = t.gen.GenerateToken(v)
					_, taken = owner[tok]
				}
			}
			if taken {
				collisions++
			}
		}
		tokens[v] = tok
		if _, taken := owner[tok]; !taken {
			owner[tok] = v
		}
		t.report(StageAssign, 1, len(values))
	}
	return tokens, collisions
}

// newSubstituter builds a replacer over every non-empty unique value.
// strings.Replacer matches leftmost first and, at one position, prefers the
// earliest pair; pairs are ordered longest first. Its output is never rescanned.
func newSubstituter(tokens map[string]string) *strings.Replacer {
	needles := lo.Filter(lo.Keys(tokens), func(v string, _ int) bool { return v != "" })
	if len(needles) == 0 {
		return nil
	}
	sort.Slice(needles, func(i, j int) bool {
		if len(needles[i]) != len(needles[j]) {
			return len(needles[i]) > len(needles[j])
		}
		return needles[i] < needles[j]
	})
	pairs := make([]string, 0, 2*len(needles))
	for _, n := range needles {
		pairs = append(pairs, n, tokens[n])
	}
	return strings.NewReplacer(pairs...)
}

func (t *DatasetTokenizer) rewrite(table *models.Table, column string, tokens map[string]string) (*models.Table, int) {
	out := &models.Table{
		Columns: append([]string(nil), table.Columns...),
		Rows:    make([]models.Row, len(table.Rows)),
	}
	replacer := newSubstituter(tokens)
	total := len(table.Rows)

	p := pool.NewWithResults[int]().WithMaxGoroutines(t.opts.Workers)
	for _, sh := range shards(total, t.opts.Workers) {
		sh := sh
		p.Go(func() int {
			changed := 0
			for i := sh[0]; i < sh[1]; i++ {
				row := table.Rows[i]
				nr := make(models.Row, len(row))
				for c, v := range row {
					nv := v
					if c == column {
						nv = tokens[v]
					} else if replacer != nil {
						nv = replacer.Replace(v)
					}
					if nv != v {
						changed++
					}
					nr[c] = nv
				}
				out.Rows[i] = nr
			}
			t.report(StageRewrite, sh[1]-sh[0], total)
			return changed
		})
	}
	return out, lo.Sum(p.Wait())
}
