// Package metrics exposes the engine's Prometheus registry and the
// /metrics and /health HTTP endpoints.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// Metrics holds the engine's instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal     prometheus.Counter
	CycleDuration   prometheus.Histogram
	CandidatesTotal prometheus.Counter
	VerdictsTotal   *prometheus.CounterVec
	SignalsTotal    *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	CacheEntries    *prometheus.GaugeVec
	DiscoverySize   prometheus.Gauge
}

// New creates the instrument set on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memerun_scan_cycles_total",
		Help: "Completed scan cycles.",
	})
	m.CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "memerun_scan_cycle_duration_seconds",
		Help:    "Wall time per scan cycle.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
	})
	m.CandidatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memerun_candidates_total",
		Help: "Candidates fed into the pipeline.",
	})
	m.VerdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memerun_verdicts_total",
		Help: "Pipeline outcomes by verdict.",
	}, []string{"verdict"})
	m.SignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memerun_signals_total",
		Help: "Emitted signals by track.",
	}, []string{"track"})
	m.ProviderErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memerun_provider_errors_total",
		Help: "Provider call failures by provider.",
	}, []string{"provider"})
	m.CacheEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "memerun_cache_entries",
		Help: "Resident TTL cache entries by cache.",
	}, []string{"cache"})
	m.DiscoverySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memerun_discovery_tracked",
		Help: "Tokens currently in the discovery set.",
	})

	m.registry.MustRegister(
		m.CyclesTotal, m.CycleDuration, m.CandidatesTotal,
		m.VerdictsTotal, m.SignalsTotal, m.ProviderErrors,
		m.CacheEntries, m.DiscoverySize,
	)
	return m
}

// Gather snapshots the registry, the same families /metrics would render.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// CounterValue reads one counter's current value from a gathered snapshot,
// summed across label combinations. Used by cycle diagnostics and tests.
func (m *Metrics) CounterValue(name string) float64 {
	families, err := m.registry.Gather()
	if err != nil {
		return 0
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		total := 0.0
		for _, metric := range fam.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

// HealthReporter contributes one named section to the health payload.
type HealthReporter interface {
	Name() string
	Health() any
}

// Server serves /metrics and /health.
type Server struct {
	srv       *http.Server
	reporters []HealthReporter
	startedAt time.Time
}

// NewServer builds the HTTP server on the given listen address.
func NewServer(listen string, m *Metrics, reporters ...HealthReporter) *Server {
	s := &Server{reporters: reporters, startedAt: time.Now()}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         listen,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		log.Info().Str("listen", s.srv.Addr).Msg("metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	}
	for _, rep := range s.reporters {
		payload[rep.Name()] = rep.Health()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Debug().Err(err).Msg("health encode failed")
	}
}
