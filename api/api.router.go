package api

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/smartfarm/irrigation-hub/api/resources"
	"github.com/smartfarm/irrigation-hub/internal/hubservice"
	"github.com/smartfarm/irrigation-hub/internal/monitoring"
	"github.com/smartfarm/irrigation-hub/internal/mqtt"
)

type Router struct {
	router    *mux.Router
	metrics   *monitoring.Service
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService, publisher *mqtt.Client, metrics *monitoring.Service) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		metrics:   metrics,
		resources: resources.NewResources(svc, publisher),
	}

	r.setupRoutes()
	return r
}

// SetHealthCheck installs the process-level health handler.
func (r *Router) SetHealthCheck(h func(w http.ResponseWriter, req *http.Request)) {
	r.resources.SetHealthCheck(h)
}

func (r *Router) setupRoutes() {
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.Use(r.countRequests)

	api.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		if r.resources.HealthCheck != nil {
			r.resources.HealthCheck(w, req)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	if r.metrics != nil {
		api.Handle("/metrics", r.metrics.Handler()).Methods(http.MethodGet)
	}

	// Relay log. Literal paths must precede the {id} route.
	relay := api.PathPrefix("/relay-log").Subrouter()
	relay.HandleFunc("", r.resources.RelayLog.ListRelayLogs).Methods(http.MethodGet)
	relay.HandleFunc("", r.resources.RelayLog.CreateRelayLog).Methods(http.MethodPost)
	relay.HandleFunc("/state-change", r.resources.RelayLog.LogStateChange).Methods(http.MethodPost)
	relay.HandleFunc("/status", r.resources.RelayLog.GetStatus).Methods(http.MethodGet)
	relay.HandleFunc("/stats", r.resources.RelayLog.GetStats).Methods(http.MethodGet)
	relay.HandleFunc("/duration", r.resources.RelayLog.GetDuration).Methods(http.MethodGet)
	relay.HandleFunc("/latest", r.resources.RelayLog.GetLatest).Methods(http.MethodGet)
	relay.HandleFunc("/health", r.resources.RelayLog.GetHealth).Methods(http.MethodGet)
	relay.HandleFunc("/cleanup", r.resources.RelayLog.Cleanup).Methods(http.MethodDelete)
	relay.HandleFunc("/{id}", r.resources.RelayLog.GetRelayLog).Methods(http.MethodGet)

	// Sensor data
	sensor := api.PathPrefix("/sensor-data").Subrouter()
	sensor.HandleFunc("", r.resources.SensorData.ListSensorData).Methods(http.MethodGet)
	sensor.HandleFunc("", r.resources.SensorData.CreateSensorData).Methods(http.MethodPost)
	sensor.HandleFunc("/latest", r.resources.SensorData.GetLatest).Methods(http.MethodGet)
	sensor.HandleFunc("/stats", r.resources.SensorData.GetStats).Methods(http.MethodGet)
	sensor.HandleFunc("/health", r.resources.SensorData.GetHealth).Methods(http.MethodGet)
	sensor.HandleFunc("/cleanup", r.resources.SensorData.Cleanup).Methods(http.MethodDelete)
	sensor.HandleFunc("/{id}", r.resources.SensorData.GetSensorData).Methods(http.MethodGet)

	// MQTT
	broker := api.PathPrefix("/mqtt").Subrouter()
	broker.HandleFunc("/publish", r.resources.MQTT.Publish).Methods(http.MethodPost)
	broker.HandleFunc("/health", r.resources.MQTT.GetHealth).Methods(http.MethodGet)
}

// countRequests records per-route request counts by response status.
func (r *Router) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		route := req.URL.Path
		if current := mux.CurrentRoute(req); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		r.metrics.RecordHTTPRequest(route, http.StatusText(rec.status))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Handler wraps the router with request logging and CORS.
func (r *Router) Handler(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return handlers.CombinedLoggingHandler(os.Stdout, cors(r.router))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
