package ds_internal

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"csv_pii_tokenizer/engine"
	"csv_pii_tokenizer/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrDatasetNotFound), errors.Is(err, engine.ErrRowOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, models.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidColumn),
		errors.Is(err, engine.ErrMalformedRow),
		errors.Is(err, engine.ErrNoHeader),
		errors.Is(err, engine.ErrDuplicateColumn),
		errors.Is(err, engine.ErrUnsupportedFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeDomainError writes err with its mapped status. Internal errors are not
// echoed to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeJSONError(w, status, "internal error")
		return
	}
	writeJSONError(w, status, err.Error())
}
