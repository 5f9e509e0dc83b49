package main

import (
	"database/sql"
	"flag"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"csv_pii_tokenizer/common"
	"csv_pii_tokenizer/ds_internal"
	"csv_pii_tokenizer/models"
)

func apiKeyMiddleware(expectedAPIKey string, next http.Handler) http.Handler {
	if expectedAPIKey == "" {
		log.Warn("API_KEY not set; every request will be rejected")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")

		if apiKey == "" {
			http.Error(w, `{"error": "Missing API key"}`, http.StatusUnauthorized)
			return
		}
		if apiKey != expectedAPIKey {
			http.Error(w, `{"error": "Invalid API key"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-API-Key")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json, toml or env)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	common.InitLogging(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	// Fail at startup rather than on the first tokenize request.
	if _, err := common.NewTokenGenerator(cfg.Generator); err != nil {
		log.Fatalf("token generator: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 15)

	if err = db.Ping(); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	if err := common.RunMigrations(db, cfg.MigrationsPath); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	store := models.NewStore(db)

	cache, err := ds_internal.NewCache(cfg)
	if err != nil {
		log.Warnf("redis init failed, running without cache: %v", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	srv := ds_internal.NewServer(store, cache, cfg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", corsMiddleware(apiKeyMiddleware(cfg.APIKey, srv.Router())))

	log.Infof("starting server on %s (token mode %s, workers %d)", cfg.HTTPAddr, cfg.Generator.Mode, cfg.Workers)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, mux))
}
