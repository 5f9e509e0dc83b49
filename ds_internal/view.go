package ds_internal

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"csv_pii_tokenizer/engine"
)

const filterPrefix = "filter."

// viewOptions reads page, per_page, sort, order and filter.<column> query
// parameters.
func viewOptions(r *http.Request) engine.ViewOptions {
	q := r.URL.Query()
	opts := engine.ViewOptions{
		SortColumn: q.Get("sort"),
		Desc:       strings.EqualFold(q.Get("order"), "desc"),
	}
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	for key, vals := range q {
		if col, ok := strings.CutPrefix(key, filterPrefix); ok && len(vals) > 0 {
			if opts.Filters == nil {
				opts.Filters = map[string]string{}
			}
			opts.Filters[col] = vals[0]
		}
	}
	return opts
}

func (s *Server) viewRowsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	ds, err := s.loadDataset(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	page, err := engine.View(ds.Table, viewOptions(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) rowDetailHandler(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid row index")
		return
	}
	ds, err := s.loadDataset(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	row, err := engine.RowDetail(ds.Table, index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"index":   index,
		"columns": ds.Table.Columns,
		"values":  row,
	})
}

func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	ds, err := s.loadDataset(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ratio := engine.DefaultDetectRatio
	if v, err := strconv.ParseFloat(r.URL.Query().Get("min_ratio"), 64); err == nil && v > 0 && v <= 1 {
		ratio = v
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataset_id":  id,
		"suggestions": engine.DetectColumns(ds.Table, ratio),
	})
}
