package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
)

type stubReporter struct{}

func (stubReporter) Name() string { return "providers" }
func (stubReporter) Health() any  { return map[string]string{"aggregator": "closed"} }

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.CyclesTotal.Inc()
	m.VerdictsTotal.WithLabelValues("ONCHAIN_SIGNAL_SENT").Inc()

	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	require.Contains(t, body, "memerun_scan_cycles_total 1")
	require.Contains(t, body, `memerun_verdicts_total{verdict="ONCHAIN_SIGNAL_SENT"} 1`)
}

func TestCounterValueSumsLabels(t *testing.T) {
	m := New()
	m.VerdictsTotal.WithLabelValues("SKIPPED").Add(2)
	m.VerdictsTotal.WithLabelValues("TOO_EARLY").Inc()

	require.Equal(t, 3.0, m.CounterValue("memerun_verdicts_total"))
	require.Equal(t, 0.0, m.CounterValue("memerun_missing_metric"))

	families, err := m.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(":0", New(), stubReporter{})

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "ok", payload["status"])
	require.Contains(t, payload, "providers")
}
