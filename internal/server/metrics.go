package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clientlance/internal/auth"
)

// Metrics owns a private registry so tests can build servers side by side.
type Metrics struct {
	Registry      *prometheus.Registry
	AuthResults   *prometheus.CounterVec
	RateLimited   *prometheus.CounterVec
	EmailOutcomes *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		AuthResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientlance",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Auth operations by operation and result kind.",
		}, []string{"operation", "result"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientlance",
			Subsystem: "auth",
			Name:      "rate_limited_total",
			Help:      "Requests refused by the rate limiter.",
		}, []string{"scope"}),
		EmailOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientlance",
			Subsystem: "email",
			Name:      "messages_total",
			Help:      "Outbound mail by outcome.",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AuthResults,
		m.RateLimited,
		m.EmailOutcomes,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = string(auth.KindOf(err))
	}
	m.AuthResults.WithLabelValues(operation, result).Inc()
}
