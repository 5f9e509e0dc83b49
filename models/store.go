package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrVersionConflict is returned when a dataset changed between read and write.
	ErrVersionConflict = errors.New("dataset version conflict")
)

// DatasetInfo is the metadata of a stored dataset, without its rows.
type DatasetInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Columns   []string  `json:"columns"`
	RowCount  int       `json:"row_count"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StoredDataset struct {
	DatasetInfo
	Table *Table `json:"table"`
}

// TokenizationRun records one tokenization pass over a stored dataset.
type TokenizationRun struct {
	ID               uuid.UUID `json:"id"`
	DatasetID        int64     `json:"dataset_id"`
	TargetColumn     string    `json:"target_column"`
	Mode             string    `json:"mode"`
	UniqueValues     int       `json:"unique_values"`
	SubstitutedCells int       `json:"substituted_cells"`
	Collisions       int       `json:"collisions"`
	DurationMS       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the handle for source-table bulk jobs.
func (s *Store) DB() *sql.DB {
	return s.db
}

func encodeTable(t *Table) (cols, rows []byte, err error) {
	if cols, err = json.Marshal(t.Columns); err != nil {
		return nil, nil, fmt.Errorf("encode columns: %w", err)
	}
	r := t.Rows
	if r == nil {
		r = []Row{}
	}
	if rows, err = json.Marshal(r); err != nil {
		return nil, nil, fmt.Errorf("encode rows: %w", err)
	}
	return cols, rows, nil
}

func (s *Store) InsertDataset(ctx context.Context, name string, t *Table) (*StoredDataset, error) {
	cols, rows, err := encodeTable(t)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO datasets (name, columns, rows, row_count)
        VALUES ($1, $2, $3, $4)
        RETURNING id, version, created_at, updated_at
    `, name, cols, rows, t.RowCount())

	ds := &StoredDataset{
		DatasetInfo: DatasetInfo{Name: name, Columns: t.Columns, RowCount: t.RowCount()},
		Table:       t,
	}
	if err := row.Scan(&ds.ID, &ds.Version, &ds.CreatedAt, &ds.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert dataset: %w", err)
	}
	return ds, nil
}

func (s *Store) GetDataset(ctx context.Context, id int64) (*StoredDataset, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, name, columns, rows, row_count, version, created_at, updated_at
        FROM datasets
        WHERE id = $1
    `, id)

	var ds StoredDataset
	var cols, rows []byte
	err := row.Scan(&ds.ID, &ds.Name, &cols, &rows, &ds.RowCount, &ds.Version, &ds.CreatedAt, &ds.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrDatasetNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	t := &Table{}
	if err := json.Unmarshal(cols, &t.Columns); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	if err := json.Unmarshal(rows, &t.Rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if t.Rows == nil {
		t.Rows = []Row{}
	}
	ds.Columns = t.Columns
	ds.Table = t
	return &ds, nil
}

// ListDatasets returns metadata of the most recently updated datasets first.
func (s *Store) ListDatasets(ctx context.Context, limit int) ([]DatasetInfo, error) {
	if limit <= 0 {
		limit = 100
	}
	rs, err := s.db.QueryContext(ctx, `
        SELECT id, name, columns, row_count, version, created_at, updated_at
        FROM datasets
        ORDER BY updated_at DESC, id DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rs.Close()

	out := []DatasetInfo{}
	for rs.Next() {
		var d DatasetInfo
		var cols []byte
		if err := rs.Scan(&d.ID, &d.Name, &cols, &d.RowCount, &d.Version, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		if err := json.Unmarshal(cols, &d.Columns); err != nil {
			return nil, fmt.Errorf("decode columns: %w", err)
		}
		out = append(out, d)
	}
	return out, rs.Err()
}

func (s *Store) DeleteDataset(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrDatasetNotFound, id)
	}
	return nil
}

// ReplaceDatasetRows swaps in the tokenized table and records the run in one
// transaction. The update only applies while the stored version still equals
// expectedVersion; the new version is returned.
func (s *Store) ReplaceDatasetRows(ctx context.Context, id, expectedVersion int64, t *Table, run *TokenizationRun) (int64, error) {
	cols, rows, err := encodeTable(t)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var newVersion int64
	err = tx.QueryRowContext(ctx, `
        UPDATE datasets
        SET columns = $1, rows = $2, row_count = $3, version = version + 1, updated_at = now()
        WHERE id = $4 AND version = $5
        RETURNING version
    `, cols, rows, t.RowCount(), id, expectedVersion).Scan(&newVersion)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM datasets WHERE id = $1)`, id).Scan(&exists); err != nil {
			return 0, fmt.Errorf("check dataset: %w", err)
		}
		if !exists {
			return 0, fmt.Errorf("%w: %d", ErrDatasetNotFound, id)
		}
		return 0, fmt.Errorf("%w: dataset %d is no longer at version %d", ErrVersionConflict, id, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("update dataset: %w", err)
	}

	if run != nil {
		if run.ID == uuid.Nil {
			run.ID = uuid.New()
		}
		run.DatasetID = id
		err = tx.QueryRowContext(ctx, `
            INSERT INTO tokenization_runs
                (id, dataset_id, target_column, mode, unique_values, substituted_cells, collisions, duration_ms)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING created_at
        `, run.ID, id, run.TargetColumn, run.Mode, run.UniqueValues, run.SubstitutedCells,
			run.Collisions, run.DurationMS).Scan(&run.CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return newVersion, nil
}

// ListRuns returns the runs of a dataset, newest first.
func (s *Store) ListRuns(ctx context.Context, datasetID int64) ([]TokenizationRun, error) {
	rs, err := s.db.QueryContext(ctx, `
        SELECT id, dataset_id, target_column, mode, unique_values, substituted_cells,
               collisions, duration_ms, created_at
        FROM tokenization_runs
        WHERE dataset_id = $1
        ORDER BY created_at DESC
    `, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rs.Close()

	out := []TokenizationRun{}
	for rs.Next() {
		var r TokenizationRun
		if err := rs.Scan(&r.ID, &r.DatasetID, &r.TargetColumn, &r.Mode, &r.UniqueValues,
			&r.SubstitutedCells, &r.Collisions, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rs.Err()
}
