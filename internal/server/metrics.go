package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wfkit"

// metrics holds the collectors of one Server. Each server has its own
// registry so that several can live in one process.
type metrics struct {
	registry *prometheus.Registry

	// renders counts render and validate calls by result: ok, invalid, error.
	renders *prometheus.CounterVec

	// requests counts HTTP requests by method and status code.
	requests *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Total number of documents rendered or validated",
			},
			[]string{"result"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
	}
	m.registry.MustRegister(m.renders, m.requests)
	m.registry.MustRegister(collectors.NewGoCollector())
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) recordRequest(method string, status int) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *metrics) recordRender(result string) {
	m.renders.WithLabelValues(result).Inc()
}
