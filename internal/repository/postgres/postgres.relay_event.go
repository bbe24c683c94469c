// FilePath: internal/repository/postgres/postgres.relay_event.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/database"
	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/models"
	"github.com/smartfarm/irrigation-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// relayStateLockKey serializes state-change inserts. Concurrent callers
// queue on the advisory lock, so the latest-row check and the insert
// behave as one atomic check-and-set.
const relayStateLockKey int64 = 0x72656C6179 // "relay"

// RelayEventRepo implements repository.RelayEventRepository on
// PostgreSQL.
type RelayEventRepo struct {
	PostgresBaseRepo
}

func NewRelayEventRepository(db database.DB) (*RelayEventRepo, error) {
	repo := &RelayEventRepo{PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *RelayEventRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS relay_events (
			id TEXT PRIMARY KEY,
			relay_status BOOLEAN NOT NULL,
			trigger_reason TEXT NOT NULL,
			sensor_reading_id TEXT NOT NULL REFERENCES sensor_readings(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relay_events_created_at
			ON relay_events(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_relay_events_status_created_at
			ON relay_events(relay_status, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize relay_events schema", err)
		}
	}
	return nil
}

// Create inserts an event unconditionally. Used by the direct-ingest
// endpoint, which bypasses the alternation guard.
func (r *RelayEventRepo) Create(ctx context.Context, event *models.RelayEvent) error {
	if event.ID == "" {
		event.ID = nuts.NID("rel", 12)
	}

	query := `
		INSERT INTO relay_events (id, relay_status, trigger_reason, sensor_reading_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetDB().QueryRowxContext(ctx, query,
		event.ID,
		event.RelayStatus,
		event.TriggerReason,
		event.SensorReadingID,
	).Scan(&event.CreatedAt)

	if err != nil {
		nuts.L.Errorf("[RelayEventRepository] Failed to create event: %v", err)
		return errors.NewDatabaseError("failed to create relay event", err)
	}
	return nil
}

// CreateStateChange inserts the event only when it changes the current
// state. The check and the insert run in one transaction behind an
// advisory lock, so two concurrent callers cannot both observe the old
// state and both insert. created_at is set with clock_timestamp() so it
// is taken while the lock is held; the column default would use the
// transaction start time, which predates the lock wait and lets a
// delayed writer slot its row before the one it was checked against.
// Returns false when the relay was already in the requested state.
func (r *RelayEventRepo) CreateStateChange(ctx context.Context, event *models.RelayEvent) (bool, error) {
	if event.ID == "" {
		event.ID = nuts.NID("rel", 12)
	}

	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return false, errors.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, relayStateLockKey); err != nil {
		return false, errors.NewDatabaseError("failed to acquire relay state lock", err)
	}

	query := `
		INSERT INTO relay_events (id, relay_status, trigger_reason, sensor_reading_id, created_at)
		SELECT $1, $2::boolean, $3, $4, clock_timestamp()
		WHERE $2::boolean IS DISTINCT FROM COALESCE(
			(SELECT relay_status FROM relay_events ORDER BY created_at DESC, id DESC LIMIT 1),
			FALSE)
		RETURNING created_at`

	err = tx.QueryRowxContext(ctx, query,
		event.ID,
		event.RelayStatus,
		event.TriggerReason,
		event.SensorReadingID,
	).Scan(&event.CreatedAt)

	if err == sql.ErrNoRows {
		// Already in the requested state; nothing written.
		return false, nil
	}
	if err != nil {
		nuts.L.Errorf("[RelayEventRepository] Failed to record state change: %v", err)
		return false, errors.NewDatabaseError("failed to record relay state change", err)
	}

	if err := tx.Commit(); err != nil {
		return false, errors.NewDatabaseError("failed to commit state change", err)
	}
	return true, nil
}

// relayEventRow flattens the event joined with its sensor reading.
type relayEventRow struct {
	ID              string          `db:"id"`
	RelayStatus     bool            `db:"relay_status"`
	TriggerReason   string          `db:"trigger_reason"`
	SensorReadingID string          `db:"sensor_reading_id"`
	CreatedAt       time.Time       `db:"created_at"`
	SrID            sql.NullString  `db:"sr_id"`
	SrTemperature   sql.NullFloat64 `db:"sr_temperature"`
	SrHumidity      sql.NullFloat64 `db:"sr_humidity"`
	SrSoilMoisture  sql.NullInt64   `db:"sr_soil_moisture"`
	SrSoilTemp      sql.NullFloat64 `db:"sr_soil_temperature"`
	SrRainDetected  sql.NullBool    `db:"sr_rain_detected"`
	SrWaterLevel    sql.NullString  `db:"sr_water_level"`
	SrCreatedAt     sql.NullTime    `db:"sr_created_at"`
}

const relayEventSelect = `
	SELECT re.id, re.relay_status, re.trigger_reason, re.sensor_reading_id, re.created_at,
		sr.id AS sr_id,
		sr.temperature AS sr_temperature,
		sr.humidity AS sr_humidity,
		sr.soil_moisture AS sr_soil_moisture,
		sr.soil_temperature AS sr_soil_temperature,
		sr.rain_detected AS sr_rain_detected,
		sr.water_level AS sr_water_level,
		sr.created_at AS sr_created_at
	FROM relay_events re
	LEFT JOIN sensor_readings sr ON sr.id = re.sensor_reading_id`

func (row *relayEventRow) toModel() *models.RelayEvent {
	event := &models.RelayEvent{
		ID:              row.ID,
		RelayStatus:     row.RelayStatus,
		TriggerReason:   row.TriggerReason,
		SensorReadingID: row.SensorReadingID,
		CreatedAt:       row.CreatedAt,
	}
	if row.SrID.Valid {
		event.SensorData = &models.SensorReading{
			ID:              row.SrID.String,
			Temperature:     row.SrTemperature.Float64,
			Humidity:        row.SrHumidity.Float64,
			SoilMoisture:    int(row.SrSoilMoisture.Int64),
			SoilTemperature: nullableFloat(row.SrSoilTemp),
			RainDetected:    row.SrRainDetected.Bool,
			WaterLevel:      row.SrWaterLevel.String,
			CreatedAt:       row.SrCreatedAt.Time,
		}
	}
	return event
}

// Get retrieves a single event by ID together with its sensor reading.
func (r *RelayEventRepo) Get(ctx context.Context, id string) (*models.RelayEvent, error) {
	query := relayEventSelect + ` WHERE re.id = $1`

	row := relayEventRow{}
	err := r.db.GetDB().GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		nuts.L.Errorf("[RelayEventRepository] Failed to get event %s: %v", id, err)
		return nil, errors.NewDatabaseError("failed to get relay event", err)
	}
	return row.toModel(), nil
}

// GetLatest retrieves the most recently created event.
func (r *RelayEventRepo) GetLatest(ctx context.Context) (*models.RelayEvent, error) {
	query := relayEventSelect + ` ORDER BY re.created_at DESC, re.id DESC LIMIT 1`

	row := relayEventRow{}
	err := r.db.GetDB().GetContext(ctx, &row, query)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		nuts.L.Errorf("[RelayEventRepository] Failed to get latest event: %v", err)
		return nil, errors.NewDatabaseError("failed to get latest relay event", err)
	}
	return row.toModel(), nil
}

func buildRelayEventWhere(filters models.RelayEventFilters) (string, []interface{}) {
	where := ""
	args := []interface{}{}
	appendCond := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}

	if filters.Status != nil {
		args = append(args, *filters.Status)
		appendCond(fmt.Sprintf("re.relay_status = $%d", len(args)))
	}
	if filters.From != nil {
		args = append(args, *filters.From)
		appendCond(fmt.Sprintf("re.created_at >= $%d", len(args)))
	}
	if filters.To != nil {
		args = append(args, *filters.To)
		appendCond(fmt.Sprintf("re.created_at <= $%d", len(args)))
	}
	return where, args
}

// List retrieves a page of events, newest first, with their sensor
// readings, plus the total count matching the filters.
func (r *RelayEventRepo) List(ctx context.Context, filters models.RelayEventFilters, limit, offset int) (int64, []*models.RelayEvent, error) {
	where, args := buildRelayEventWhere(filters)

	var total int64
	countQuery := `SELECT COUNT(*) FROM relay_events re` + where
	if err := r.db.GetDB().GetContext(ctx, &total, countQuery, args...); err != nil {
		return 0, nil, errors.NewDatabaseError("failed to count relay events", err)
	}

	query := relayEventSelect + where + `
		ORDER BY re.created_at DESC, re.id DESC
		LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows := []relayEventRow{}
	if err := r.db.GetDB().SelectContext(ctx, &rows, query, args...); err != nil {
		nuts.L.Errorf("[RelayEventRepository] Failed to list events: %v", err)
		return 0, nil, errors.NewDatabaseError("failed to list relay events", err)
	}

	events := make([]*models.RelayEvent, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].toModel())
	}
	return total, events, nil
}

// ListWindow returns up to limit events created at or after since,
// newest first. Callers needing chronological order must sort.
func (r *RelayEventRepo) ListWindow(ctx context.Context, since time.Time, limit int) ([]*models.RelayEvent, error) {
	query := relayEventSelect + `
		WHERE re.created_at >= $1
		ORDER BY re.created_at DESC, re.id DESC
		LIMIT $2`

	rows := []relayEventRow{}
	if err := r.db.GetDB().SelectContext(ctx, &rows, query, since, limit); err != nil {
		nuts.L.Errorf("[RelayEventRepository] Failed to fetch event window: %v", err)
		return nil, errors.NewDatabaseError("failed to fetch relay event window", err)
	}

	events := make([]*models.RelayEvent, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].toModel())
	}
	return events, nil
}

type relayStatsRow struct {
	TotalOperations int             `db:"total_operations"`
	OnCount         int             `db:"on_count"`
	OffCount        int             `db:"off_count"`
	AvgSoilMoisture sql.NullFloat64 `db:"avg_soil_moisture"`
	AvgTemperature  sql.NullFloat64 `db:"avg_temperature"`
	AvgSoilTemp     sql.NullFloat64 `db:"avg_soil_temperature"`
	RainCount       int             `db:"rain_count"`
}

// Stats aggregates relay activity at or after since. The averages join
// each ON event to its sensor reading; with no ON events in the window
// they come back NULL and stay nil in the result. OnPercentage is left
// for the service to derive.
func (r *RelayEventRepo) Stats(ctx context.Context, since time.Time) (models.RelayStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_operations,
			COUNT(*) FILTER (WHERE re.relay_status) AS on_count,
			COUNT(*) FILTER (WHERE NOT re.relay_status) AS off_count,
			AVG(sr.soil_moisture) FILTER (WHERE re.relay_status)::float8 AS avg_soil_moisture,
			AVG(sr.temperature) FILTER (WHERE re.relay_status)::float8 AS avg_temperature,
			AVG(sr.soil_temperature) FILTER (WHERE re.relay_status)::float8 AS avg_soil_temperature,
			COUNT(*) FILTER (WHERE re.relay_status AND sr.rain_detected) AS rain_count
		FROM relay_events re
		LEFT JOIN sensor_readings sr ON sr.id = re.sensor_reading_id
		WHERE re.created_at >= $1`

	row := relayStatsRow{}
	if err := r.db.GetDB().GetContext(ctx, &row, query, since); err != nil {
		nuts.L.Errorf("[RelayEventRepository] Failed to aggregate stats: %v", err)
		return models.RelayStats{}, errors.NewDatabaseError("failed to get relay stats", err)
	}

	return models.RelayStats{
		TotalOperations:          row.TotalOperations,
		OnCount:                  row.OnCount,
		OffCount:                 row.OffCount,
		AvgSoilMoistureWhenOn:    nullableFloat(row.AvgSoilMoisture),
		AvgTemperatureWhenOn:     nullableFloat(row.AvgTemperature),
		AvgSoilTemperatureWhenOn: nullableFloat(row.AvgSoilTemp),
		RainDetectionCount:       row.RainCount,
	}, nil
}

// DeleteBefore removes events created strictly before cutoff and
// returns the number of rows deleted.
func (r *RelayEventRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM relay_events WHERE created_at < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete old relay events", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[RelayEventRepository] Deleted %d old relay events before %v", rows, cutoff)
	return rows, nil
}
