// FilePath: internal/models/models.sensor_reading.go
package models

import (
	"time"

	"github.com/smartfarm/irrigation-hub/internal/errors"
)

// Water level classifications reported by the field device.
const (
	WaterLevelLow    = "low"
	WaterLevelMedium = "medium"
	WaterLevelHigh   = "high"
)

// SensorReading is an immutable record of environmental measurements
// taken by a field device at a point in time.
type SensorReading struct {
	ID              string    `json:"id" db:"id"`
	Temperature     float64   `json:"temperature" db:"temperature"`
	Humidity        float64   `json:"humidity" db:"humidity"`
	SoilMoisture    int       `json:"soil_moisture" db:"soil_moisture"`
	SoilTemperature *float64  `json:"soil_temperature,omitempty" db:"soil_temperature"`
	RainDetected    bool      `json:"rain_detected" db:"rain_detected"`
	WaterLevel      string    `json:"water_level" db:"water_level"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Validate checks the reading against the accepted measurement envelope.
func (r *SensorReading) Validate() error {
	if r.Temperature < -50 || r.Temperature > 100 {
		return errors.NewValidationError("temperature must be between -50 and 100", nil)
	}
	if r.Humidity < 0 || r.Humidity > 100 {
		return errors.NewValidationError("humidity must be between 0 and 100", nil)
	}
	if r.SoilMoisture < 0 || r.SoilMoisture > 100 {
		return errors.NewValidationError("soil_moisture must be between 0 and 100", nil)
	}
	if r.SoilTemperature != nil && (*r.SoilTemperature < -20 || *r.SoilTemperature > 60) {
		return errors.NewValidationError("soil_temperature must be between -20 and 60", nil)
	}
	switch r.WaterLevel {
	case WaterLevelLow, WaterLevelMedium, WaterLevelHigh:
	default:
		return errors.NewValidationError("water_level must be one of low, medium, high", nil)
	}
	return nil
}
