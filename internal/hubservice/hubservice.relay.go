// FilePath: internal/hubservice/hubservice.relay.go
package hubservice

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/cache"
	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/models"
	"github.com/smartfarm/irrigation-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// maxDurationWindowEvents caps the window fetch for duration analysis
// so a busy relay cannot trigger an unbounded scan.
const maxDurationWindowEvents = 1000

// CreateRelayEvent stores an event directly, without the alternation
// guard. The referenced sensor reading must exist.
func (s *HubService) CreateRelayEvent(ctx context.Context, event *models.RelayEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	reading, err := s.Readings.Get(ctx, event.SensorReadingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return errors.NewValidationError("sensor_reading_id does not reference an existing reading", nil)
		}
		return err
	}

	if err := s.RelayEvents.Create(ctx, event); err != nil {
		return err
	}
	event.SensorData = reading

	s.Cache.Invalidate(ctx, cache.KeyRelayStatus)
	nuts.L.Infof("[RelayService] Created relay event %s (%s, %s)", event.ID, event.StateDescription(), event.TriggerReason)
	return nil
}

// RecordRelayStateChange records a transition to desiredStatus. When
// the relay is already in that state the call is a no-op and the
// result reports it; this is an outcome, not an error. After a
// successful call the most recent event's state equals desiredStatus.
func (s *HubService) RecordRelayStateChange(ctx context.Context, desiredStatus bool, triggerReason, sensorReadingID string) (*models.StateChangeResult, error) {
	event := &models.RelayEvent{
		RelayStatus:     desiredStatus,
		TriggerReason:   triggerReason,
		SensorReadingID: sensorReadingID,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	reading, err := s.Readings.Get(ctx, sensorReadingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NewValidationError("sensor_reading_id does not reference an existing reading", nil)
		}
		return nil, err
	}

	changed, err := s.RelayEvents.CreateStateChange(ctx, event)
	if err != nil {
		return nil, err
	}

	if !changed {
		nuts.L.Infof("[RelayService] Ignored state change to %s: relay already in that state", event.StateDescription())
		return &models.StateChangeResult{
			Changed: false,
			Message: "Relay is already " + event.StateDescription(),
		}, nil
	}

	event.SensorData = reading
	s.Cache.Invalidate(ctx, cache.KeyRelayStatus)

	message := "Relay deactivated successfully"
	if desiredStatus {
		message = "Relay activated successfully"
	}
	nuts.L.Infof("[RelayService] Relay switched %s (%s)", event.StateDescription(), triggerReason)
	return &models.StateChangeResult{
		Changed: true,
		Message: message,
		Event:   event,
	}, nil
}

// GetCurrentRelayStatus returns the state of the most recent event, or
// OFF when the log is empty, stamped with the call time.
func (s *HubService) GetCurrentRelayStatus(ctx context.Context) (*models.RelayStatus, error) {
	var cached struct {
		RelayStatus bool `json:"relay_status"`
	}
	if s.Cache.GetJSON(ctx, cache.KeyRelayStatus, &cached) {
		return &models.RelayStatus{RelayStatus: cached.RelayStatus, Timestamp: time.Now()}, nil
	}

	status := false
	latest, err := s.RelayEvents.GetLatest(ctx)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}
	if err == nil {
		status = latest.RelayStatus
	}

	s.Cache.SetJSON(ctx, cache.KeyRelayStatus, struct {
		RelayStatus bool `json:"relay_status"`
	}{status})
	return &models.RelayStatus{RelayStatus: status, Timestamp: time.Now()}, nil
}

// GetRelayStats aggregates relay activity over the trailing window.
// The hours range is the caller's contract; handlers reject anything
// outside [1, 168] before calling here.
func (s *HubService) GetRelayStats(ctx context.Context, hours int) (*models.RelayStats, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	stats, err := s.RelayEvents.Stats(ctx, since)
	if err != nil {
		return nil, err
	}

	stats.PeriodHours = hours
	if stats.TotalOperations > 0 {
		stats.OnPercentage = float64(stats.OnCount) / float64(stats.TotalOperations) * 100
	}
	return &stats, nil
}

// GetOperationDuration reconstructs completed ON intervals inside the
// trailing window and reports their total and average length.
func (s *HubService) GetOperationDuration(ctx context.Context, hours int) (*models.DurationReport, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	events, err := s.RelayEvents.ListWindow(ctx, since, maxDurationWindowEvents)
	if err != nil {
		return nil, err
	}

	report := &models.DurationReport{PeriodHours: hours}
	if len(events) == 0 {
		return report, nil
	}

	// The storage layer returns events newest first; the pairing scan
	// depends entirely on chronological order, so re-sort regardless.
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})

	var totalOnDuration time.Duration
	var operationCount int
	var lastOnTime *time.Time

	for _, event := range events {
		switch {
		case event.RelayStatus && lastOnTime == nil:
			t := event.CreatedAt
			lastOnTime = &t
		case !event.RelayStatus && lastOnTime != nil:
			totalOnDuration += event.CreatedAt.Sub(*lastOnTime)
			operationCount++
			lastOnTime = nil
		}
		// An ON while an interval is open cannot happen if the
		// alternation invariant holds; an OFF with no open interval
		// belongs to an interval that started before the window and is
		// deliberately not attributed to it. A trailing open ON
		// contributes nothing either way.
	}

	totalMinutes := totalOnDuration.Minutes()
	report.OperationCount = operationCount
	report.TotalOnDurationMinutes = int(math.Round(totalMinutes))
	if operationCount > 0 {
		report.AverageOnDurationMinutes = int(math.Round(totalMinutes / float64(operationCount)))
	}
	return report, nil
}

// GetLatestRelayEvent retrieves the most recent event.
func (s *HubService) GetLatestRelayEvent(ctx context.Context) (*models.RelayEvent, error) {
	event, err := s.RelayEvents.GetLatest(ctx)
	if err == repository.ErrNotFound {
		return nil, errors.NewNotFoundError("no relay log found", nil)
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// GetRelayEvent retrieves a single event by ID.
func (s *HubService) GetRelayEvent(ctx context.Context, id string) (*models.RelayEvent, error) {
	event, err := s.RelayEvents.Get(ctx, id)
	if err == repository.ErrNotFound {
		return nil, errors.NewNotFoundError("relay log not found", nil)
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListRelayEvents retrieves a page of events, newest first, with page
// metadata computed against the total matching count.
func (s *HubService) ListRelayEvents(ctx context.Context, filters models.RelayEventFilters, limit, offset int) ([]*models.RelayEvent, models.PaginationMeta, error) {
	limit, offset = clampPagination(limit, offset)
	total, events, err := s.RelayEvents.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}
	return events, models.NewPaginationMeta(total, limit, offset), nil
}

// CleanupOldRelayEvents deletes events strictly older than the cutoff.
// Callers enforce daysToKeep >= 7.
func (s *HubService) CleanupOldRelayEvents(ctx context.Context, daysToKeep int) (*models.CleanupResult, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	deleted, err := s.RelayEvents.DeleteBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	return &models.CleanupResult{DeletedCount: deleted, DaysKept: daysToKeep}, nil
}

// GetRelayHealth reports freshness of the relay event log together
// with a last-hour activity summary.
func (s *HubService) GetRelayHealth(ctx context.Context) (*models.RelayHealth, error) {
	health := &models.RelayHealth{Status: "warning", Message: "No recent relay logs found"}

	latest, err := s.RelayEvents.GetLatest(ctx)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}
	if err == nil {
		age := int64(time.Since(latest.CreatedAt).Minutes())
		health.Status = "healthy"
		health.HasData = true
		health.LastLogAgeMinutes = &age
		health.CurrentRelayStatus = latest.RelayStatus
		health.Message = "Relay log service is operational"
	}

	stats, err := s.GetRelayStats(ctx, 1)
	if err != nil {
		return nil, err
	}
	health.RecentOperations = stats.TotalOperations
	return health, nil
}

func clampPagination(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
