// Package metrics exposes prometheus instrumentation for the poll loop.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CyclesTotal counts completed poll cycles.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitewatch_cycles_total",
		Help: "Completed poll cycles.",
	})

	// ChecksTotal counts per-site checks by outcome.
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_checks_total",
		Help: "Per-site checks by outcome.",
	}, []string{"outcome"})

	// CheckDuration observes how long one site check takes.
	CheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitewatch_check_duration_seconds",
		Help:    "Duration of a single site check.",
		Buckets: prometheus.DefBuckets,
	})

	// SitesGauge tracks how many sites the last cycle covered.
	SitesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sitewatch_sites",
		Help: "Sites covered by the last cycle.",
	})
)

// Check outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

// Router returns the HTTP surface for scraping and liveness checks.
func Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}
