package hubservice

import (
	"github.com/smartfarm/irrigation-hub/internal/cache"
	"github.com/smartfarm/irrigation-hub/internal/cleanup"
	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/repository"
)

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Readings    repository.SensorReadingRepository
	RelayEvents repository.RelayEventRepository
	Cache       *cache.Service
	Cleanup     *cleanup.CleanupService
}

// New creates a new HubService instance. cacheService may be nil when
// Redis is disabled.
func New(
	readings repository.SensorReadingRepository,
	relayEvents repository.RelayEventRepository,
	cacheService *cache.Service,
) *HubService {
	svc := &HubService{
		Readings:    readings,
		RelayEvents: relayEvents,
		Cache:       cacheService,
	}
	svc.Cleanup = cleanup.New(readings, relayEvents)
	return svc
}

// Validate checks if all required repositories are initialized
func (s *HubService) Validate() error {
	if s.Readings == nil {
		return ErrMissingRepository("readings")
	}
	if s.RelayEvents == nil {
		return ErrMissingRepository("relayEvents")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
