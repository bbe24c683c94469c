// FilePath: internal/models/models.reports.go
package models

import "time"

// RelayStatus is the point-in-time state of the relay.
type RelayStatus struct {
	RelayStatus bool      `json:"relay_status"`
	Timestamp   time.Time `json:"timestamp"`
}

// RelayStats aggregates relay activity over a trailing window. The
// averages are taken over the sensor readings referenced by ON events
// in the window; they are nil when no ON events exist, never zero.
type RelayStats struct {
	PeriodHours              int      `json:"period_hours"`
	TotalOperations          int      `json:"total_operations"`
	OnCount                  int      `json:"on_count"`
	OffCount                 int      `json:"off_count"`
	OnPercentage             float64  `json:"on_percentage"`
	AvgSoilMoistureWhenOn    *float64 `json:"avg_soil_moisture_when_on"`
	AvgTemperatureWhenOn     *float64 `json:"avg_temperature_when_on"`
	AvgSoilTemperatureWhenOn *float64 `json:"avg_soil_temperature_when_on"`
	RainDetectionCount       int      `json:"rain_detection_count"`
}

// DurationReport summarizes completed ON intervals inside a window.
// An ON interval still open at the end of the window contributes
// nothing; only fully observed intervals are counted.
type DurationReport struct {
	PeriodHours              int `json:"period_hours"`
	TotalOnDurationMinutes   int `json:"total_on_duration_minutes"`
	AverageOnDurationMinutes int `json:"average_on_duration_minutes"`
	OperationCount           int `json:"operation_count"`
}

// StateChangeResult is the typed outcome of a state-change request.
// A rejected no-op transition is not an error: Changed is false and
// Message explains why.
type StateChangeResult struct {
	Changed bool        `json:"changed"`
	Message string      `json:"message"`
	Event   *RelayEvent `json:"event,omitempty"`
}

// SensorMetricAggregate holds one aggregate (avg, min or max) per
// metric; a nil field means no data in the window.
type SensorMetricAggregate struct {
	Temperature     *float64 `json:"temperature"`
	Humidity        *float64 `json:"humidity"`
	SoilMoisture    *float64 `json:"soil_moisture"`
	SoilTemperature *float64 `json:"soil_temperature"`
}

// SensorStats aggregates sensor readings over a trailing window.
type SensorStats struct {
	PeriodHours        int                   `json:"period_hours"`
	Average            SensorMetricAggregate `json:"average"`
	Minimum            SensorMetricAggregate `json:"minimum"`
	Maximum            SensorMetricAggregate `json:"maximum"`
	TotalReadings      int                   `json:"total_readings"`
	RainDetectionCount int                   `json:"rain_detection_count"`
}

// CleanupResult reports an age-based retention sweep.
type CleanupResult struct {
	DeletedCount int64 `json:"deleted_count"`
	DaysKept     int   `json:"days_kept"`
}

// RelayHealth summarizes the freshness of the relay event log.
type RelayHealth struct {
	Status             string `json:"status"`
	HasData            bool   `json:"has_data"`
	LastLogAgeMinutes  *int64 `json:"last_log_age_minutes"`
	CurrentRelayStatus bool   `json:"current_relay_status"`
	RecentOperations   int    `json:"recent_operations"`
	Message            string `json:"message"`
}

// SensorHealth summarizes the freshness of the sensor reading log.
type SensorHealth struct {
	Status                string `json:"status"`
	HasData               bool   `json:"has_data"`
	LastReadingAgeMinutes *int64 `json:"last_reading_age_minutes"`
	ReadingsLastHour      int    `json:"readings_last_hour"`
	Message               string `json:"message"`
}
