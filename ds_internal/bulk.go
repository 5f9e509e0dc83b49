package ds_internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"csv_pii_tokenizer/models"
)

var (
	identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	ErrInvalidIdentifier = errors.New("invalid table or column name")
)

// BulkResult summarizes a source-table job.
type BulkResult struct {
	Rows             int    `json:"rows"`
	UpdatedRows      int    `json:"updated_rows"`
	Mode             string `json:"mode"`
	UniqueValues     int    `json:"unique_values"`
	SubstitutedCells int    `json:"substituted_cells"`
	Collisions       int    `json:"collisions"`
}

func openPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(5)
	return db, nil
}

// quoteTable validates "table" or "schema.table" and returns it quoted.
func quoteTable(name string) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	for i, p := range parts {
		if !identRE.MatchString(p) {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}

// sourceRow is one scanned row of the source table. valid[c] is false for NULL.
type sourceRow struct {
	ctid  string
	valid map[string]bool
}

// readSourceTable loads every column of table plus the row ctid.
func readSourceTable(ctx context.Context, db *sql.DB, quoted string) (*models.Table, []sourceRow, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT ctid::text AS ctid, * FROM %s", quoted))
	if err != nil {
		return nil, nil, fmt.Errorf("query source: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("source columns: %w", err)
	}
	if len(cols) < 2 {
		return nil, nil, fmt.Errorf("source table %s has no columns", quoted)
	}
	columns := cols[1:]
	table := models.NewTable(columns)
	var meta []sourceRow

	vals := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan source row: %w", err)
		}
		row := make(models.Row, len(columns))
		sr := sourceRow{ctid: vals[0].String, valid: make(map[string]bool, len(columns))}
		for i, c := range columns {
			row[c] = vals[i+1].String
			sr.valid[c] = vals[i+1].Valid
		}
		table.Rows = append(table.Rows, row)
		meta = append(meta, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows error: %w", err)
	}
	return table, meta, nil
}

// BulkTokenize tokenizes a whole PostgreSQL table in place. Every cell a pass
// changes is written back by ctid inside one transaction; NULL cells are left
// alone.
func (s *Server) BulkTokenize(ctx context.Context, srcDSN, srcTable, column string) (*BulkResult, error) {
	quoted, err := quoteTable(srcTable)
	if err != nil {
		return nil, err
	}
	if !identRE.MatchString(column) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, column)
	}

	srcDB, err := s.openSource(srcDSN)
	if err != nil {
		return nil, fmt.Errorf("open src db: %w", err)
	}
	defer srcDB.Close()

	table, meta, err := readSourceTable(ctx, srcDB, quoted)
	if err != nil {
		return nil, err
	}
	log.Infof("bulk: loaded %d rows from %s", len(table.Rows), quoted)

	tok, err := s.newTokenizer()
	if err != nil {
		return nil, err
	}
	started := time.Now()
	res, err := tok.Run(table, column)
	if err != nil {
		observeRun("bulk", started, 0, 0, err)
		return nil, err
	}

	tx, err := srcDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	updated := 0
	for i, before := range table.Rows {
		after := res.Table.Rows[i]
		var sets []string
		var args []any
		for _, c := range table.Columns {
			if !meta[i].valid[c] || before[c] == after[c] {
				continue
			}
			args = append(args, after[c])
			sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), len(args)))
		}
		if len(sets) == 0 {
			continue
		}
		args = append(args, meta[i].ctid)
		stmt := fmt.Sprintf("UPDATE %s SET %s WHERE ctid = $%d::tid", quoted, strings.Join(sets, ", "), len(args))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			observeRun("bulk", started, 0, 0, err)
			return nil, fmt.Errorf("update row %s: %w", meta[i].ctid, err)
		}
		updated++
	}
	if err := tx.Commit(); err != nil {
		observeRun("bulk", started, 0, 0, err)
		return nil, fmt.Errorf("commit: %w", err)
	}
	observeRun("bulk", started, res.SubstitutedCells, res.Collisions, nil)

	log.Infof("bulk-tokenize completed: table=%s rows=%d updated=%d unique=%d collisions=%d",
		quoted, len(table.Rows), updated, res.UniqueValues, res.Collisions)
	return &BulkResult{
		Rows:             len(table.Rows),
		UpdatedRows:      updated,
		Mode:             res.Mode,
		UniqueValues:     res.UniqueValues,
		SubstitutedCells: res.SubstitutedCells,
		Collisions:       res.Collisions,
	}, nil
}
