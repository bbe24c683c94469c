// FilePath: internal/hubservice/fakes_test.go
package hubservice

import (
	"context"
	"fmt"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/database"
	"github.com/smartfarm/irrigation-hub/internal/models"
	"github.com/smartfarm/irrigation-hub/internal/repository"
)

// In-memory repositories matching the storage contract: listings come
// back newest first, CreateStateChange enforces the alternation guard.

type fakeReadingRepo struct {
	readings []*models.SensorReading
	nextID   int
}

func (f *fakeReadingRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}

func (f *fakeReadingRepo) Create(ctx context.Context, reading *models.SensorReading) error {
	f.nextID++
	if reading.ID == "" {
		reading.ID = fmt.Sprintf("sr_%d", f.nextID)
	}
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now()
	}
	f.readings = append(f.readings, reading)
	return nil
}

func (f *fakeReadingRepo) Get(ctx context.Context, id string) (*models.SensorReading, error) {
	for _, r := range f.readings {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeReadingRepo) GetLatest(ctx context.Context) (*models.SensorReading, error) {
	if len(f.readings) == 0 {
		return nil, repository.ErrNotFound
	}
	latest := f.readings[0]
	for _, r := range f.readings[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (f *fakeReadingRepo) List(ctx context.Context, filters models.SensorReadingFilters, limit, offset int) (int64, []*models.SensorReading, error) {
	var matched []*models.SensorReading
	for _, r := range f.readings {
		if filters.From != nil && r.CreatedAt.Before(*filters.From) {
			continue
		}
		if filters.To != nil && r.CreatedAt.After(*filters.To) {
			continue
		}
		matched = append(matched, r)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return total, nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return total, matched[offset:end], nil
}

func (f *fakeReadingRepo) Stats(ctx context.Context, since time.Time) (models.SensorStats, error) {
	stats := models.SensorStats{}
	for _, r := range f.readings {
		if r.CreatedAt.Before(since) {
			continue
		}
		stats.TotalReadings++
		if r.RainDetected {
			stats.RainDetectionCount++
		}
	}
	return stats, nil
}

func (f *fakeReadingRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []*models.SensorReading
	var deleted int64
	for _, r := range f.readings {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.readings = kept
	return deleted, nil
}

type fakeRelayRepo struct {
	events []*models.RelayEvent
	nextID int
}

func (f *fakeRelayRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}

func (f *fakeRelayRepo) insert(event *models.RelayEvent) {
	f.nextID++
	if event.ID == "" {
		event.ID = fmt.Sprintf("rel_%d", f.nextID)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	f.events = append(f.events, event)
}

func (f *fakeRelayRepo) latest() *models.RelayEvent {
	if len(f.events) == 0 {
		return nil
	}
	latest := f.events[0]
	for _, e := range f.events[1:] {
		if e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	return latest
}

func (f *fakeRelayRepo) Create(ctx context.Context, event *models.RelayEvent) error {
	f.insert(event)
	return nil
}

func (f *fakeRelayRepo) CreateStateChange(ctx context.Context, event *models.RelayEvent) (bool, error) {
	current := false
	if latest := f.latest(); latest != nil {
		current = latest.RelayStatus
	}
	if event.RelayStatus == current {
		return false, nil
	}
	f.insert(event)
	return true, nil
}

func (f *fakeRelayRepo) Get(ctx context.Context, id string) (*models.RelayEvent, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRelayRepo) GetLatest(ctx context.Context) (*models.RelayEvent, error) {
	latest := f.latest()
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeRelayRepo) List(ctx context.Context, filters models.RelayEventFilters, limit, offset int) (int64, []*models.RelayEvent, error) {
	var matched []*models.RelayEvent
	for i := len(f.events) - 1; i >= 0; i-- {
		e := f.events[i]
		if filters.Status != nil && e.RelayStatus != *filters.Status {
			continue
		}
		if filters.From != nil && e.CreatedAt.Before(*filters.From) {
			continue
		}
		if filters.To != nil && e.CreatedAt.After(*filters.To) {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return total, nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return total, matched[offset:end], nil
}

func (f *fakeRelayRepo) ListWindow(ctx context.Context, since time.Time, limit int) ([]*models.RelayEvent, error) {
	var matched []*models.RelayEvent
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].CreatedAt.Before(since) {
			continue
		}
		matched = append(matched, f.events[i])
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func (f *fakeRelayRepo) Stats(ctx context.Context, since time.Time) (models.RelayStats, error) {
	stats := models.RelayStats{}
	for _, e := range f.events {
		if e.CreatedAt.Before(since) {
			continue
		}
		stats.TotalOperations++
		if e.RelayStatus {
			stats.OnCount++
		} else {
			stats.OffCount++
		}
	}
	return stats, nil
}

func (f *fakeRelayRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []*models.RelayEvent
	var deleted int64
	for _, e := range f.events {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return deleted, nil
}

// newTestService builds a HubService over fresh fakes with one sensor
// reading already stored.
func newTestService() (*HubService, *fakeReadingRepo, *fakeRelayRepo) {
	readings := &fakeReadingRepo{}
	relay := &fakeRelayRepo{}
	readings.readings = append(readings.readings, &models.SensorReading{
		ID:           "sr_seed",
		Temperature:  21.5,
		Humidity:     55,
		SoilMoisture: 40,
		WaterLevel:   models.WaterLevelMedium,
		CreatedAt:    time.Now().Add(-time.Minute),
	})
	return New(readings, relay, nil), readings, relay
}
