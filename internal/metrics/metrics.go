package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/FranksOps/scout/internal/marketplace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_searches_total",
			Help: "Keyword searches executed, by variant and outcome",
		},
		[]string{"variant", "outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scout_search_duration_seconds",
			Help:    "Duration of keyword searches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"variant"},
	)

	ItemsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_items_extracted_total",
			Help: "Result items extracted across all searches",
		},
		[]string{"variant"},
	)

	BlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_blocked_total",
			Help: "Search pages replaced by a bot-protection interstitial",
		},
		[]string{"source"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_proxy_failures_total",
			Help: "Requests that failed while routed through a proxy",
		},
		[]string{"proxy_url"},
	)

	CallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_oauth_callbacks_total",
			Help: "Authorization redirects received on the callback endpoint",
		},
	)
)

// Outcome labels a search for SearchesTotal.
func Outcome(res marketplace.SearchResult) string {
	switch {
	case res.Err == nil:
		return "ok"
	case errors.Is(res.Err, marketplace.ErrBlocked):
		return "blocked"
	default:
		return "error"
	}
}

// RecordSearch updates the search metrics for one keyword.
func RecordSearch(variant string, res marketplace.SearchResult, took time.Duration) {
	SearchesTotal.WithLabelValues(variant, Outcome(res)).Inc()
	SearchDuration.WithLabelValues(variant).Observe(took.Seconds())
	ItemsExtracted.WithLabelValues(variant).Add(float64(len(res.Items)))
}

// Server exposes /metrics over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer prepares a metrics server on port without starting it.
func NewServer(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{srv: &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// ListenAndServe blocks until the server stops. A graceful Stop is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
