package ds_internal

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"csv_pii_tokenizer/engine"
	"csv_pii_tokenizer/models"
)

// DatasetResponse is the metadata view of a dataset returned by the API.
type DatasetResponse struct {
	models.DatasetInfo
}

func datasetID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// loadDataset serves from the cache when possible and fills it on a miss.
// Writers overwrite the entry; this fill never does.
func (s *Server) loadDataset(ctx context.Context, id int64) (*models.StoredDataset, error) {
	if ds, err := s.cache.GetDataset(ctx, id); err != nil {
		log.Warnf("cache: get dataset %d: %v", id, err)
	} else if ds != nil {
		return ds, nil
	}

	ds, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.cache.FillDataset(ctx, ds); err != nil {
		log.Warnf("cache: fill dataset %d: %v", id, err)
	}
	return ds, nil
}

// uploadSource returns the CSV stream of an upload and a default name for it.
// Multipart uploads use the "file" field; anything else is read as raw CSV.
func uploadSource(r *http.Request) (io.ReadCloser, string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		return r.Body, "dataset", nil
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	name := strings.TrimSuffix(filepath.Base(hdr.Filename), filepath.Ext(hdr.Filename))
	return f, name, nil
}

func (s *Server) uploadDatasetHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	src, name, err := uploadSource(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer src.Close()

	table, err := engine.ReadCSV(src)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		if statusFor(err) == http.StatusInternalServerError {
			writeJSONError(w, http.StatusBadRequest, "invalid csv: "+err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}

	if q := strings.TrimSpace(r.URL.Query().Get("name")); q != "" {
		name = q
	}
	ds, err := s.store.InsertDataset(r.Context(), name, table)
	if err != nil {
		log.Errorf("insert dataset: %v", err)
		writeDomainError(w, err)
		return
	}
	if err := s.cache.SetDataset(r.Context(), ds); err != nil {
		log.Warnf("cache: set dataset %d: %v", ds.ID, err)
	}

	log.Infof("dataset %d uploaded: name=%q columns=%d rows=%d", ds.ID, ds.Name, len(ds.Columns), ds.RowCount)
	writeJSON(w, http.StatusCreated, DatasetResponse{DatasetInfo: ds.DatasetInfo})
}

func (s *Server) listDatasetsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	infos, err := s.store.ListDatasets(r.Context(), limit)
	if err != nil {
		log.Errorf("list datasets: %v", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": infos})
}

func (s *Server) getDatasetHandler(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, DatasetResponse{DatasetInfo: ds.DatasetInfo})
}

func (s *Server) deleteDatasetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	if err := s.store.DeleteDataset(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.cache.InvalidateDataset(r.Context(), id); err != nil {
		log.Warnf("cache: invalidate dataset %d: %v", id, err)
	}
	w.WriteHeader(http.StatusNoContent)
}
