// Package metrics holds the prometheus collectors shared by the gateway,
// the cache and the HTTP server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "s4json"

var (
	registry = prometheus.NewRegistry()

	// GatewayCalls counts gateway operations by outcome (ok, not_found, error).
	GatewayCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_calls_total",
		Help:      "Remote gateway calls by operation and outcome.",
	}, []string{"op", "outcome"})

	GatewayLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_call_duration_seconds",
		Help:      "Latency of remote gateway calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// CacheLookups counts cache store lookups by kind (buckets, files,
	// content) and result (hit, miss, shared).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache store lookups by kind and result.",
	}, []string{"kind", "result"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP API requests by route and status code.",
	}, []string{"route", "code"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		GatewayCalls,
		GatewayLatency,
		CacheLookups,
		HTTPRequests,
	)
}

// Registry returns the registry all collectors are registered with.
func Registry() *prometheus.Registry {
	return registry
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
