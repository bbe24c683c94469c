package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service exposes Prometheus metrics for the hub and the MQTT worker.
type Service struct {
	registry *prometheus.Registry

	mqttMessages     *prometheus.CounterVec
	relayTransitions *prometheus.CounterVec
	cleanupDeletions *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// NewService creates the metrics registry and registers all collectors.
func NewService() *Service {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	s := &Service{
		registry: registry,
		mqttMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigation_mqtt_messages_total",
			Help: "Inbound MQTT messages by topic class and outcome.",
		}, []string{"class", "outcome"}),
		relayTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigation_relay_transitions_total",
			Help: "Relay state-change requests by outcome.",
		}, []string{"outcome"}),
		cleanupDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigation_cleanup_deleted_rows_total",
			Help: "Rows removed by retention cleanup, per table.",
		}, []string{"table"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigation_http_requests_total",
			Help: "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
	}

	registry.MustRegister(s.mqttMessages, s.relayTransitions, s.cleanupDeletions, s.httpRequests)
	return s
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// RecordMQTTMessage counts an inbound message. class is "sensor" or
// "relay"; outcome is "stored", "rejected" or "dropped".
func (s *Service) RecordMQTTMessage(class, outcome string) {
	if s == nil {
		return
	}
	s.mqttMessages.WithLabelValues(class, outcome).Inc()
}

// RecordRelayTransition counts a state-change request. outcome is
// "accepted" or "rejected".
func (s *Service) RecordRelayTransition(outcome string) {
	if s == nil {
		return
	}
	s.relayTransitions.WithLabelValues(outcome).Inc()
}

// RecordCleanup counts rows removed by a retention sweep.
func (s *Service) RecordCleanup(table string, deleted int64) {
	if s == nil {
		return
	}
	s.cleanupDeletions.WithLabelValues(table).Add(float64(deleted))
}

// RecordHTTPRequest counts a served request.
func (s *Service) RecordHTTPRequest(route, status string) {
	if s == nil {
		return
	}
	s.httpRequests.WithLabelValues(route, status).Inc()
}
