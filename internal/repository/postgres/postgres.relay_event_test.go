package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/smartfarm/irrigation-hub/internal/models"
)

type mockConn struct{ db *sqlx.DB }

func (m mockConn) Close() error                   { return m.db.Close() }
func (m mockConn) Ping(ctx context.Context) error { return m.db.PingContext(ctx) }
func (m mockConn) GetDB() *sqlx.DB                { return m.db }

func newMockRelayRepo(t *testing.T) (*RelayEventRepo, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS relay_events`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_relay_events_created_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_relay_events_status_created_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo, err := NewRelayEventRepository(mockConn{db: sqlx.NewDb(mockDB, "sqlmock")})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo, mock
}

// The conditional insert must take its timestamp while the advisory
// lock is held. The column default fires at transaction start, before
// the lock wait, which would let a writer that lost the race slot its
// row earlier in created_at order than the row it was checked against.
func TestCreateStateChangeTimestampsUnderLock(t *testing.T) {
	repo, mock := newMockRelayRepo(t)
	now := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(relayStateLockKey).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)INSERT INTO relay_events \(id, relay_status, trigger_reason, sensor_reading_id, created_at\).*clock_timestamp\(\).*IS DISTINCT FROM`).
		WithArgs("rel_boundary1", true, "soil_moisture_low", "sr_1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	event := &models.RelayEvent{
		ID:              "rel_boundary1",
		RelayStatus:     true,
		TriggerReason:   "soil_moisture_low",
		SensorReadingID: "sr_1",
	}
	changed, err := repo.CreateStateChange(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected the transition to be recorded")
	}
	if !event.CreatedAt.Equal(now) {
		t.Errorf("expected created_at %v, got %v", now, event.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateStateChangeNoOpWhenStateUnchanged(t *testing.T) {
	repo, mock := newMockRelayRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(relayStateLockKey).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO relay_events`).
		WithArgs("rel_dup1", true, "soil_moisture_low", "sr_1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectRollback()

	event := &models.RelayEvent{
		ID:              "rel_dup1",
		RelayStatus:     true,
		TriggerReason:   "soil_moisture_low",
		SensorReadingID: "sr_1",
	}
	changed, err := repo.CreateStateChange(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Error("expected a duplicate state to be rejected")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// Retention is exclusive at the cutoff: the delete compares with a
// strict <, so a row created exactly at the cutoff instant survives.
func TestDeleteBeforeExcludesCutoffInstant(t *testing.T) {
	repo, mock := newMockRelayRepo(t)
	cutoff := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM relay_events WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := repo.DeleteBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
