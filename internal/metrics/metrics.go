package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCtx holds the prometheus registry and collectors for the relay
// service. Each instance owns its registry so tests can create as many
// as they need.
type MetricsCtx struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	relayedBytes    prometheus.Counter
	activeRelays    prometheus.Gauge
	credentialLoads *prometheus.CounterVec
}

func New() *MetricsCtx {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ytrelay_requests_total",
		Help: "Total number of relay requests by outcome",
	}, []string{"outcome"})
	relayedBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytrelay_relayed_bytes_total",
		Help: "Total number of bytes forwarded to sinks",
	})
	activeRelays := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytrelay_active_relays",
		Help: "Number of streams currently being relayed",
	})
	credentialLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ytrelay_credential_loads_total",
		Help: "Credential bundle load attempts by source and result",
	}, []string{"source", "result"})

	registry.MustRegister(
		requestsTotal,
		relayedBytes,
		activeRelays,
		credentialLoads,
	)

	return &MetricsCtx{
		registry:        registry,
		requestsTotal:   requestsTotal,
		relayedBytes:    relayedBytes,
		activeRelays:    activeRelays,
		credentialLoads: credentialLoads,
	}
}

func (m *MetricsCtx) Request(outcome string) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsCtx) RelayedBytes(n int64) {
	m.relayedBytes.Add(float64(n))
}

func (m *MetricsCtx) RelayStarted() {
	m.activeRelays.Inc()
}

func (m *MetricsCtx) RelayFinished() {
	m.activeRelays.Dec()
}

func (m *MetricsCtx) CredentialLoad(source string, result string) {
	m.credentialLoads.WithLabelValues(source, result).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *MetricsCtx) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
