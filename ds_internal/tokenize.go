package ds_internal

import (
	"context"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"csv_pii_tokenizer/models"
)

type TokenizeDatasetRequest struct {
	Column string `json:"column"`
}

type TokenizeDatasetResponse struct {
	DatasetID int64                  `json:"dataset_id"`
	Version   int64                  `json:"version"`
	Run       models.TokenizationRun `json:"run"`
}

// TokenizeRequest is the body of the stateless endpoint.
type TokenizeRequest struct {
	Columns []string     `json:"columns"`
	Rows    []models.Row `json:"rows"`
	Column  string       `json:"column"`
}

type TokenizeResponse struct {
	Columns          []string     `json:"columns"`
	Rows             []models.Row `json:"rows"`
	Mode             string       `json:"mode"`
	UniqueValues     int          `json:"unique_values"`
	SubstitutedCells int          `json:"substituted_cells"`
	Collisions       int          `json:"collisions"`
}

// tokenizeDatasetHandler runs one pass over a stored dataset and saves the
// result as the next version.
func (s *Server) tokenizeDatasetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	var req TokenizeDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body, expected {\"column\": \"...\"}")
		return
	}
	req.Column = strings.TrimSpace(req.Column)
	if req.Column == "" {
		writeJSONError(w, http.StatusBadRequest, "column is required")
		return
	}

	// Read from the store, not the cache: the version must be current.
	ds, err := s.store.GetDataset(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	tok, err := s.newTokenizer()
	if err != nil {
		log.Errorf("tokenize: generator: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	started := time.Now()
	res, err := tok.Run(ds.Table, req.Column)
	if err != nil {
		observeRun("dataset", started, 0, 0, err)
		writeDomainError(w, err)
		return
	}

	run := &models.TokenizationRun{
		TargetColumn:     res.TargetColumn,
		Mode:             res.Mode,
		UniqueValues:     res.UniqueValues,
		SubstitutedCells: res.SubstitutedCells,
		Collisions:       res.Collisions,
		DurationMS:       time.Since(started).Milliseconds(),
	}
	version, err := s.store.ReplaceDatasetRows(r.Context(), id, ds.Version, res.Table, run)
	observeRun("dataset", started, res.SubstitutedCells, res.Collisions, err)
	if err != nil {
		log.Warnf("tokenize dataset %d: %v", id, err)
		writeDomainError(w, err)
		return
	}
	s.cacheNewVersion(r.Context(), ds, res.Table, version)

	log.Infof("dataset %d tokenized: column=%q mode=%s unique=%d cells=%d collisions=%d version=%d",
		id, run.TargetColumn, run.Mode, run.UniqueValues, run.SubstitutedCells, run.Collisions, version)
	writeJSON(w, http.StatusOK, TokenizeDatasetResponse{DatasetID: id, Version: version, Run: *run})
}

func (s *Server) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	runs, err := s.store.ListRuns(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dataset_id": id, "runs": runs})
}

// tokenizeHandler tokenizes a table sent in the request body without storing it.
func (s *Server) tokenizeHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	var req TokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body, expected columns, rows and column")
		return
	}
	if len(req.Columns) == 0 || strings.TrimSpace(req.Column) == "" {
		writeJSONError(w, http.StatusBadRequest, "columns and column are required")
		return
	}

	table := models.NewTable(req.Columns)
	if req.Rows != nil {
		table.Rows = req.Rows
	}

	tok, err := s.newTokenizer()
	if err != nil {
		log.Errorf("tokenize: generator: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	started := time.Now()
	res, err := tok.Run(table, req.Column)
	if err != nil {
		observeRun("request", started, 0, 0, err)
		writeDomainError(w, err)
		return
	}
	observeRun("request", started, res.SubstitutedCells, res.Collisions, nil)

	writeJSON(w, http.StatusOK, TokenizeResponse{
		Columns:          res.Table.Columns,
		Rows:             res.Table.Rows,
		Mode:             res.Mode,
		UniqueValues:     res.UniqueValues,
		SubstitutedCells: res.SubstitutedCells,
		Collisions:       res.Collisions,
	})
}

// cacheNewVersion overwrites the cached dataset with the committed version so
// a concurrent reader's older fill cannot take its place. If the write fails
// the entry is dropped instead.
func (s *Server) cacheNewVersion(ctx context.Context, prev *models.StoredDataset, table *models.Table, version int64) {
	next := &models.StoredDataset{DatasetInfo: prev.DatasetInfo, Table: table}
	next.Columns = table.Columns
	next.RowCount = table.RowCount()
	next.Version = version
	next.UpdatedAt = time.Now().UTC()

	if err := s.cache.SetDataset(ctx, next); err != nil {
		log.Warnf("cache: set dataset %d: %v", prev.ID, err)
		if err := s.cache.InvalidateDataset(ctx, prev.ID); err != nil {
			log.Warnf("cache: invalidate dataset %d: %v", prev.ID, err)
		}
	}
}
