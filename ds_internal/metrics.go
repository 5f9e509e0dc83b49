package ds_internal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dstokenize_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	tokenizeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dstokenize_runs_total",
		Help: "Tokenization passes by source and outcome.",
	}, []string{"source", "outcome"})

	substitutedCells = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dstokenize_substituted_cells_total",
		Help: "Cells changed by tokenization passes.",
	})

	tokenCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dstokenize_token_collisions_total",
		Help: "Tokens that were already owned by a different source value.",
	})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dstokenize_run_duration_seconds",
		Help:    "Duration of tokenization passes.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"source"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dstokenize_cache_lookups_total",
		Help: "Dataset cache lookups by result.",
	}, []string{"result"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		httpRequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

func observeRun(source string, started time.Time, cells, collisions int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	tokenizeRuns.WithLabelValues(source, outcome).Inc()
	runDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
	if err == nil {
		substitutedCells.Add(float64(cells))
		tokenCollisions.Add(float64(collisions))
	}
}
