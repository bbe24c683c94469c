// FilePath: internal/models/models.relay_event.go
package models

import (
	"strings"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/errors"
)

// Well-known trigger reasons; the field is free text, these are the
// classifications the system itself produces.
const (
	TriggerReasonAuto     = "auto"
	TriggerReasonFrontend = "frontend-command"
)

// RelayEvent is an immutable record of a single relay (pump) state
// transition, associated with the sensor reading that was current at
// the time of the transition.
type RelayEvent struct {
	ID              string         `json:"id" db:"id"`
	RelayStatus     bool           `json:"relay_status" db:"relay_status"`
	TriggerReason   string         `json:"trigger_reason" db:"trigger_reason"`
	SensorReadingID string         `json:"sensor_reading_id" db:"sensor_reading_id"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	SensorData      *SensorReading `json:"sensor_data,omitempty" db:"-"`
}

// Validate checks the event's own fields; the alternation invariant is
// enforced by the storage layer, not here.
func (e *RelayEvent) Validate() error {
	if strings.TrimSpace(e.TriggerReason) == "" {
		return errors.NewValidationError("trigger_reason is required and must be a non-empty string", nil)
	}
	if e.SensorReadingID == "" {
		return errors.NewValidationError("sensor_reading_id is required", nil)
	}
	return nil
}

// StateDescription renders the relay state for log and status messages.
func (e *RelayEvent) StateDescription() string {
	if e.RelayStatus {
		return "ON"
	}
	return "OFF"
}
