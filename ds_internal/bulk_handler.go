package ds_internal

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

type BulkTokenizeRequest struct {
	SrcDSN   string `json:"src_dsn"`
	SrcTable string `json:"src_table"`
	Column   string `json:"column"`
}

type BulkTokenizeResponse struct {
	Message string `json:"message"`
	*BulkResult
}

// HTTP handler for POST /bulk-tokenize
func (s *Server) bulkTokenizeHandler(w http.ResponseWriter, r *http.Request) {
	var req BulkTokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SrcDSN == "" || req.SrcTable == "" || req.Column == "" {
		writeJSONError(w, http.StatusBadRequest, "src_dsn, src_table and column are required")
		return
	}

	log.Infof("bulk-tokenize request: table=%s column=%s", req.SrcTable, req.Column)

	res, err := s.BulkTokenize(r.Context(), req.SrcDSN, req.SrcTable, req.Column)
	if err != nil {
		log.Errorf("bulk-tokenize error: %v", err)
		if errors.Is(err, ErrInvalidIdentifier) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if status := statusFor(err); status != http.StatusInternalServerError {
			writeJSONError(w, status, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "bulk-tokenize failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, BulkTokenizeResponse{
		Message:    "bulk-tokenize completed successfully",
		BulkResult: res,
	})
}
