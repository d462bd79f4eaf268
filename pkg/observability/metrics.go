package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics handles application metrics and monitoring
type Metrics struct {
	registry *prometheus.Registry

	MessagesAppended   prometheus.Counter
	BroadcastDelivered prometheus.Counter
	BroadcastFailed    prometheus.Counter
	ActiveConnections  prometheus.Gauge
	EventsPublished    *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// NewMetrics creates a new metrics instance with its own registry
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		MessagesAppended: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_appended_total",
			Help:      "Messages durably appended to conversation history",
		}),
		BroadcastDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_delivered_total",
			Help:      "Payloads delivered to live websocket subscribers",
		}),
		BroadcastFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_failed_total",
			Help:      "Payloads dropped because a subscriber was slow or gone",
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Currently open websocket connections",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events handed to the event bus, by outcome",
		}, []string{"event_type", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status class",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// Handler returns the /metrics endpoint handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request observation
func (m *Metrics) ObserveRequest(route, method, status string, duration time.Duration) {
	m.RequestDuration.WithLabelValues(route, method, status).Observe(duration.Seconds())
}

// RecordEventPublish records a domain event publish attempt
func (m *Metrics) RecordEventPublish(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}
