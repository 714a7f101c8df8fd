// Package metrics exposes Prometheus metrics for the editor service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EditorChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mongods_editor_changes_total",
		Help: "Settings and query form change events, by field.",
	}, []string{"field"})

	QueriesForwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mongods_queries_forwarded_total",
		Help: "Query targets forwarded to the backend, by outcome.",
	}, []string{"status"})

	ForwardDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mongods_forward_duration_seconds",
		Help:    "Time spent waiting for the host to answer a forwarded query batch.",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mongods_http_requests_total",
		Help: "HTTP requests served, by route and status code.",
	}, []string{"route", "code"})
)

var registerOnce sync.Once

// Register adds all collectors to the default registerer. It is safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		MustRegisterTo(prometheus.DefaultRegisterer)
	})
}

func MustRegisterTo(reg prometheus.Registerer) {
	reg.MustRegister(EditorChanges, QueriesForwarded, ForwardDuration, HTTPRequests)
}

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
