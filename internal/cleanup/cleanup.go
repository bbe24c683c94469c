package cleanup

import (
	"context"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// MinRetentionDays is the youngest data a sweep may remove. Requests
// below this are rejected at the API boundary as well.
const MinRetentionDays = 7

// CleanupService coordinates age-based retention over the sensor
// reading and relay event logs. The two sweeps are independent and
// idempotent; no ordering between them is required.
type CleanupService struct {
	readings    repository.SensorReadingRepository
	relayEvents repository.RelayEventRepository
	events      *nuts.EventEmitter
}

// New creates a new CleanupService
func New(
	readings repository.SensorReadingRepository,
	relayEvents repository.RelayEventRepository,
) *CleanupService {
	return &CleanupService{
		readings:    readings,
		relayEvents: relayEvents,
		events:      nuts.NewEventEmitter(),
	}
}

// SweepRelayEvents deletes relay events strictly older than the cutoff
// and reports the number removed.
func (s *CleanupService) SweepRelayEvents(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	deleted, err := s.relayEvents.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if err := s.events.Emit("relay_events.cleaned", deleted); err != nil {
		nuts.L.Warnf("[Cleanup] Failed to notify relay_events.cleaned: %v", err)
	}
	return deleted, nil
}

// SweepSensorReadings deletes sensor readings strictly older than the
// cutoff and reports the number removed.
func (s *CleanupService) SweepSensorReadings(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	deleted, err := s.readings.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if err := s.events.Emit("sensor_readings.cleaned", deleted); err != nil {
		nuts.L.Warnf("[Cleanup] Failed to notify sensor_readings.cleaned: %v", err)
	}
	return deleted, nil
}

// RunSweeper runs both sweeps on a fixed interval until ctx is
// cancelled. daysToKeep below MinRetentionDays disables the sweeper.
func (s *CleanupService) RunSweeper(ctx context.Context, daysToKeep int, interval time.Duration) {
	if daysToKeep < MinRetentionDays {
		nuts.L.Infof("[Cleanup] Retention sweeper disabled (days=%d)", daysToKeep)
		return
	}

	nuts.L.Infof("[Cleanup] Retention sweeper running every %v, keeping %d days", interval, daysToKeep)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			nuts.L.Infof("[Cleanup] Retention sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepRelayEvents(ctx, daysToKeep); err != nil {
				nuts.L.Errorf("[Cleanup] Relay event sweep failed: %v", err)
			}
			if _, err := s.SweepSensorReadings(ctx, daysToKeep); err != nil {
				nuts.L.Errorf("[Cleanup] Sensor reading sweep failed: %v", err)
			}
		}
	}
}

// OnCleanup registers a callback invoked with the number of rows a
// sweep removed. The handler signature must match the emitted argument
// exactly; the emitter dispatches by reflection and rejects variadic
// wrappers.
func (s *CleanupService) OnCleanup(event string, handler func(deleted int64)) {
	if _, err := s.events.On(event, "cleanup_handler", handler); err != nil {
		nuts.L.Errorf("[Cleanup] Failed to register handler for %s: %v", event, err)
	}
}
