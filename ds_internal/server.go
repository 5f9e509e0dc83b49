package ds_internal

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"csv_pii_tokenizer/common"
	"csv_pii_tokenizer/engine"
	"csv_pii_tokenizer/models"
)

type HealthStatusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type Server struct {
	store *models.Store
	cache *Cache
	cfg   *common.Config
	r     *mux.Router

	// openSource connects to the database named in a bulk request.
	openSource func(dsn string) (*sql.DB, error)
}

// NewServer wires the routes. When cache is non-nil the most recent datasets
// are preloaded synchronously.
func NewServer(store *models.Store, cache *Cache, cfg *common.Config) *Server {
	s := &Server{
		store:      store,
		cache:      cache,
		cfg:        cfg,
		r:          mux.NewRouter(),
		openSource: openPostgres,
	}

	if cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := cache.PreloadFromStore(ctx, store, cfg.CachePreloadLimit); err != nil {
			log.Warnf("cache preload failed: %v", err)
		}
	}

	s.routes()
	return s
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatusResponse{
		Message: "Dataset Tokenization Service is working",
		Status:  "Fine",
	})
}

func (s *Server) routes() {
	s.r.Use(metricsMiddleware)

	sr := s.r.PathPrefix("/api/dataset-tokenization").Subrouter()
	sr.HandleFunc("/datasets", s.uploadDatasetHandler).Methods(http.MethodPost)
	sr.HandleFunc("/datasets", s.listDatasetsHandler).Methods(http.MethodGet)
	sr.HandleFunc("/datasets/{id:[0-9]+}", s.getDatasetHandler).Methods(http.MethodGet)
	sr.HandleFunc("/datasets/{id:[0-9]+}", s.deleteDatasetHandler).Methods(http.MethodDelete)
	sr.HandleFunc("/datasets/{id:[0-9]+}/rows", s.viewRowsHandler).Methods(http.MethodGet)
	sr.HandleFunc("/datasets/{id:[0-9]+}/rows/{index:[0-9]+}", s.rowDetailHandler).Methods(http.MethodGet)
	sr.HandleFunc("/datasets/{id:[0-9]+}/detect", s.detectHandler).Methods(http.MethodGet)
	sr.HandleFunc("/datasets/{id:[0-9]+}/tokenize", s.tokenizeDatasetHandler).Methods(http.MethodPost)
	sr.HandleFunc("/datasets/{id:[0-9]+}/runs", s.listRunsHandler).Methods(http.MethodGet)
	sr.HandleFunc("/datasets/{id:[0-9]+}/export", s.exportHandler).Methods(http.MethodGet)

	sr.HandleFunc("/tokenize", s.tokenizeHandler).Methods(http.MethodPost)
	sr.HandleFunc("/bulk-tokenize", s.bulkTokenizeHandler).Methods(http.MethodPost)

	sr.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
}

func (s *Server) Router() http.Handler {
	return s.r
}

// newTokenizer builds a fresh generator per pass; generators are not shared
// between requests.
func (s *Server) newTokenizer() (*engine.DatasetTokenizer, error) {
	gen, err := common.NewTokenGenerator(s.cfg.Generator)
	if err != nil {
		return nil, err
	}
	return engine.NewDatasetTokenizer(gen, engine.Options{
		Workers:               s.cfg.Workers,
		RegenerateOnCollision: s.cfg.RegenerateCollisions,
	}), nil
}
