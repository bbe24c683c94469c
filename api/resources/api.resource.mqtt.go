// FilePath: api/resources/api.resource.mqtt.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/mqtt"
	nuts "github.com/vaudience/go-nuts"
)

// MQTTHandlers exposes broker publish and health over HTTP. The
// publisher is nil when MQTT is disabled in the configuration.
type MQTTHandlers struct {
	publisher *mqtt.Client
}

type publishRequest struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
	QoS     byte   `json:"qos"`
	Retain  bool   `json:"retain"`
}

// Publish forwards an arbitrary payload to the broker. String payloads
// go out verbatim, everything else is marshalled to JSON.
func (h *MQTTHandlers) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	requestID := nuts.NID("req", 12)

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.Topic == "" {
		respondWithError(w, errors.NewValidationError("topic is required", nil).WithRequestID(requestID))
		return
	}
	if req.QoS > 2 {
		respondWithError(w, errors.NewValidationError("qos must be 0, 1 or 2", nil).WithRequestID(requestID))
		return
	}
	if h.publisher == nil || !h.publisher.IsConnected() {
		respondWithError(w, errors.NewUnavailableError("mqtt broker not connected", nil).WithRequestID(requestID))
		return
	}

	var payload []byte
	switch v := req.Payload.(type) {
	case string:
		payload = []byte(v)
	case nil:
		payload = []byte{}
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			respondWithError(w, errors.NewValidationError("payload is not serializable", err).WithRequestID(requestID))
			return
		}
		payload = encoded
	}

	if err := h.publisher.Publish(req.Topic, req.QoS, req.Retain, payload); err != nil {
		respondWithError(w, errors.NewUnavailableError("failed to publish message", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Message published successfully",
		Data:    map[string]any{"topic": req.Topic, "bytes": len(payload)},
	})
}

// GetHealth reports the broker connection state and the subscribed
// topic patterns.
func (h *MQTTHandlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	connected := h.publisher != nil && h.publisher.IsConnected()

	status := "healthy"
	code := http.StatusOK
	var topics []string
	if connected {
		topics = h.publisher.Topics()
	} else {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	respondWithJSON(w, code, apiResponse{
		Success: connected,
		Message: "MQTT health retrieved successfully",
		Data: map[string]any{
			"status":    status,
			"connected": connected,
			"topics":    topics,
		},
	})
}
