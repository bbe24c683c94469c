// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"

	"github.com/gorilla/schema"
	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/hubservice"
	"github.com/smartfarm/irrigation-hub/internal/models"
	"github.com/smartfarm/irrigation-hub/internal/mqtt"
	nuts "github.com/vaudience/go-nuts"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	RelayLog    *RelayLogHandlers
	SensorData  *SensorDataHandlers
	MQTT        *MQTTHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
	Metrics     http.Handler
}

// NewResources creates a new Resources instance. The publisher may be
// nil when the process runs without a broker connection.
func NewResources(svc *hubservice.HubService, publisher *mqtt.Client) *Resources {
	return &Resources{
		RelayLog:   &RelayLogHandlers{hubservice: svc},
		SensorData: &SensorDataHandlers{hubservice: svc},
		MQTT:       &MQTTHandlers{publisher: publisher},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h http.Handler) {
	r.Metrics = h
}

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// paginatedResponse extends the envelope with page metadata.
type paginatedResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    any                   `json:"data"`
	Meta    models.PaginationMeta `json:"meta"`
}

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(time.Time{}, func(value string) reflect.Value {
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(t)
	})
	return d
}

func decodeQuery(r *http.Request, dest any) error {
	return queryDecoder.Decode(dest, r.URL.Query())
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(apiResponse{
		Success: false,
		Message: err.Message,
		Data:    err,
	})
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// respondService translates service errors into the right HTTP status.
func respondService(w http.ResponseWriter, requestID, fallback string, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	respondWithError(w, errors.NewInternalError(fallback, err).WithRequestID(requestID))
}
