// FilePath: internal/hubservice/hubservice.readings.go
package hubservice

import (
	"context"
	"fmt"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/cache"
	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/models"
	"github.com/smartfarm/irrigation-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// CreateSensorReading validates and stores a new reading. Plausibility
// warnings do not block the write; sensors misbehave in the field and
// the raw record is still worth keeping.
func (s *HubService) CreateSensorReading(ctx context.Context, reading *models.SensorReading) error {
	if err := reading.Validate(); err != nil {
		return err
	}

	for _, warning := range s.ReadingWarnings(reading) {
		nuts.L.Warnf("[SensorService] %s", warning)
	}

	if err := s.Readings.Create(ctx, reading); err != nil {
		return err
	}

	s.Cache.Invalidate(ctx, cache.KeyLatestReading)
	return nil
}

// GetLatestSensorReading retrieves the most recent reading.
func (s *HubService) GetLatestSensorReading(ctx context.Context) (*models.SensorReading, error) {
	cached := &models.SensorReading{}
	if s.Cache.GetJSON(ctx, cache.KeyLatestReading, cached) {
		return cached, nil
	}

	reading, err := s.Readings.GetLatest(ctx)
	if err == repository.ErrNotFound {
		return nil, errors.NewNotFoundError("no sensor data found", nil)
	}
	if err != nil {
		return nil, err
	}

	s.Cache.SetJSON(ctx, cache.KeyLatestReading, reading)
	return reading, nil
}

// GetSensorReading retrieves a single reading by ID.
func (s *HubService) GetSensorReading(ctx context.Context, id string) (*models.SensorReading, error) {
	reading, err := s.Readings.Get(ctx, id)
	if err == repository.ErrNotFound {
		return nil, errors.NewNotFoundError("sensor data not found", nil)
	}
	if err != nil {
		return nil, err
	}
	return reading, nil
}

// ListSensorReadings retrieves a page of readings, newest first.
func (s *HubService) ListSensorReadings(ctx context.Context, filters models.SensorReadingFilters, limit, offset int) ([]*models.SensorReading, models.PaginationMeta, error) {
	limit, offset = clampPagination(limit, offset)
	total, readings, err := s.Readings.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}
	return readings, models.NewPaginationMeta(total, limit, offset), nil
}

// GetSensorStats aggregates readings over the trailing window.
func (s *HubService) GetSensorStats(ctx context.Context, hours int) (*models.SensorStats, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	stats, err := s.Readings.Stats(ctx, since)
	if err != nil {
		return nil, err
	}
	stats.PeriodHours = hours
	return &stats, nil
}

// CleanupOldSensorReadings deletes readings strictly older than the
// cutoff. Callers enforce daysToKeep >= 7.
func (s *HubService) CleanupOldSensorReadings(ctx context.Context, daysToKeep int) (*models.CleanupResult, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	deleted, err := s.Readings.DeleteBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	return &models.CleanupResult{DeletedCount: deleted, DaysKept: daysToKeep}, nil
}

// GetSensorHealth reports freshness of the sensor reading log.
func (s *HubService) GetSensorHealth(ctx context.Context) (*models.SensorHealth, error) {
	health := &models.SensorHealth{Status: "warning", Message: "No recent sensor data found"}

	latest, err := s.Readings.GetLatest(ctx)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}
	if err == nil {
		age := int64(time.Since(latest.CreatedAt).Minutes())
		health.Status = "healthy"
		health.HasData = true
		health.LastReadingAgeMinutes = &age
		health.Message = "Sensor data service is operational"
	}

	stats, err := s.GetSensorStats(ctx, 1)
	if err != nil {
		return nil, err
	}
	health.ReadingsLastHour = stats.TotalReadings
	return health, nil
}

// ReadingWarnings checks a reading for values that are valid but
// implausible, pointing at sensor drift or malfunction.
func (s *HubService) ReadingWarnings(reading *models.SensorReading) []string {
	var warnings []string

	if reading.Temperature < -10 || reading.Temperature > 50 {
		warnings = append(warnings, fmt.Sprintf(
			"Temperature %.1f°C is outside normal range (-10°C to 50°C)", reading.Temperature))
	}
	if reading.Humidity < 10 || reading.Humidity > 95 {
		warnings = append(warnings, fmt.Sprintf(
			"Humidity %.1f%% is outside normal range (10%% to 95%%)", reading.Humidity))
	}
	if reading.SoilTemperature != nil {
		if *reading.SoilTemperature > reading.Temperature+10 {
			warnings = append(warnings, fmt.Sprintf(
				"Soil temperature (%.1f°C) is unusually higher than air temperature (%.1f°C)",
				*reading.SoilTemperature, reading.Temperature))
		}
	}
	if reading.RainDetected && reading.SoilMoisture < 30 {
		warnings = append(warnings,
			"Rain detected but soil moisture is low - possible sensor malfunction")
	}
	return warnings
}
