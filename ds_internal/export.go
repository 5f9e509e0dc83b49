package ds_internal

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"csv_pii_tokenizer/engine"
)

func exportFilename(requested, datasetName, format string) string {
	base := strings.TrimSpace(requested)
	if base == "" {
		base = datasetName + "_tokenized"
	}
	base = filepath.Base(base)
	if !strings.HasSuffix(strings.ToLower(base), "."+format) {
		base += "." + format
	}
	return base
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = engine.FormatCSV
	}
	if format != engine.FormatCSV && format != engine.FormatJSON {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}

	ds, err := s.loadDataset(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	name := exportFilename(r.URL.Query().Get("filename"), ds.Name, format)
	w.Header().Set("Content-Type", engine.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := engine.Export(w, ds.Table, format); err != nil {
		log.Errorf("export dataset %d: %v", id, err)
	}
}
