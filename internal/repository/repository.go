// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/database"
	"github.com/smartfarm/irrigation-hub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// SensorReadingRepository defines the interface for sensor reading
// storage operations.
type SensorReadingRepository interface {
	database.Repository
	Create(ctx context.Context, reading *models.SensorReading) error
	Get(ctx context.Context, id string) (*models.SensorReading, error)
	GetLatest(ctx context.Context) (*models.SensorReading, error)
	List(ctx context.Context, filters models.SensorReadingFilters, limit, offset int) (int64, []*models.SensorReading, error)
	Stats(ctx context.Context, since time.Time) (models.SensorStats, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RelayEventRepository defines the interface for the relay event log.
// The log is append-only; listings are returned newest first and the
// caller must not assume any other ordering.
type RelayEventRepository interface {
	database.Repository
	// Create inserts an event unconditionally, bypassing the
	// alternation guard.
	Create(ctx context.Context, event *models.RelayEvent) error
	// CreateStateChange inserts the event only if its state differs
	// from the most recently stored one ("off" when the log is empty).
	// It returns false, without writing, when the relay is already in
	// the requested state.
	CreateStateChange(ctx context.Context, event *models.RelayEvent) (bool, error)
	Get(ctx context.Context, id string) (*models.RelayEvent, error)
	GetLatest(ctx context.Context) (*models.RelayEvent, error)
	List(ctx context.Context, filters models.RelayEventFilters, limit, offset int) (int64, []*models.RelayEvent, error)
	// ListWindow returns up to limit events created at or after since,
	// newest first.
	ListWindow(ctx context.Context, since time.Time, limit int) ([]*models.RelayEvent, error)
	Stats(ctx context.Context, since time.Time) (models.RelayStats, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
