// FilePath: internal/repository/postgres/postgres.sensor_reading.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/database"
	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/models"
	"github.com/smartfarm/irrigation-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// SensorReadingRepo implements repository.SensorReadingRepository on
// PostgreSQL.
type SensorReadingRepo struct {
	PostgresBaseRepo
}

func NewSensorReadingRepository(db database.DB) (*SensorReadingRepo, error) {
	repo := &SensorReadingRepo{PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SensorReadingRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sensor_readings (
			id TEXT PRIMARY KEY,
			temperature DOUBLE PRECISION NOT NULL,
			humidity DOUBLE PRECISION NOT NULL,
			soil_moisture INTEGER NOT NULL,
			soil_temperature DOUBLE PRECISION,
			rain_detected BOOLEAN NOT NULL,
			water_level TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_readings_created_at
			ON sensor_readings(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize sensor_readings schema", err)
		}
	}
	return nil
}

// Create inserts a new sensor reading. The creation timestamp is
// assigned by the database so insertion order and timestamp order
// agree.
func (r *SensorReadingRepo) Create(ctx context.Context, reading *models.SensorReading) error {
	if reading.ID == "" {
		reading.ID = nuts.NID("sr", 12)
	}

	query := `
		INSERT INTO sensor_readings (
			id, temperature, humidity, soil_moisture, soil_temperature, rain_detected, water_level
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING created_at`

	err := r.db.GetDB().QueryRowxContext(ctx, query,
		reading.ID,
		reading.Temperature,
		reading.Humidity,
		reading.SoilMoisture,
		reading.SoilTemperature,
		reading.RainDetected,
		reading.WaterLevel,
	).Scan(&reading.CreatedAt)

	if err != nil {
		nuts.L.Errorf("[SensorReadingRepository] Failed to create reading: %v", err)
		return errors.NewDatabaseError("failed to create sensor reading", err)
	}
	return nil
}

// Get retrieves a single reading by ID.
func (r *SensorReadingRepo) Get(ctx context.Context, id string) (*models.SensorReading, error) {
	query := `
		SELECT id, temperature, humidity, soil_moisture, soil_temperature, rain_detected, water_level, created_at
		FROM sensor_readings
		WHERE id = $1`

	reading := &models.SensorReading{}
	err := r.db.GetDB().GetContext(ctx, reading, query, id)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		nuts.L.Errorf("[SensorReadingRepository] Failed to get reading %s: %v", id, err)
		return nil, errors.NewDatabaseError("failed to get sensor reading", err)
	}
	return reading, nil
}

// GetLatest retrieves the most recently created reading.
func (r *SensorReadingRepo) GetLatest(ctx context.Context) (*models.SensorReading, error) {
	query := `
		SELECT id, temperature, humidity, soil_moisture, soil_temperature, rain_detected, water_level, created_at
		FROM sensor_readings
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	reading := &models.SensorReading{}
	err := r.db.GetDB().GetContext(ctx, reading, query)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		nuts.L.Errorf("[SensorReadingRepository] Failed to get latest reading: %v", err)
		return nil, errors.NewDatabaseError("failed to get latest sensor reading", err)
	}
	return reading, nil
}

// List retrieves a page of readings, newest first, together with the
// total number of rows matching the filters.
func (r *SensorReadingRepo) List(ctx context.Context, filters models.SensorReadingFilters, limit, offset int) (int64, []*models.SensorReading, error) {
	where, args := buildTimeRangeWhere("created_at", filters.From, filters.To, nil)

	var total int64
	countQuery := `SELECT COUNT(*) FROM sensor_readings` + where
	if err := r.db.GetDB().GetContext(ctx, &total, countQuery, args...); err != nil {
		return 0, nil, errors.NewDatabaseError("failed to count sensor readings", err)
	}

	query := `
		SELECT id, temperature, humidity, soil_moisture, soil_temperature, rain_detected, water_level, created_at
		FROM sensor_readings` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	readings := []*models.SensorReading{}
	if err := r.db.GetDB().SelectContext(ctx, &readings, query, args...); err != nil {
		nuts.L.Errorf("[SensorReadingRepository] Failed to list readings: %v", err)
		return 0, nil, errors.NewDatabaseError("failed to list sensor readings", err)
	}
	return total, readings, nil
}

type sensorStatsRow struct {
	AvgTemperature     sql.NullFloat64 `db:"avg_temperature"`
	AvgHumidity        sql.NullFloat64 `db:"avg_humidity"`
	AvgSoilMoisture    sql.NullFloat64 `db:"avg_soil_moisture"`
	AvgSoilTemperature sql.NullFloat64 `db:"avg_soil_temperature"`
	MinTemperature     sql.NullFloat64 `db:"min_temperature"`
	MinHumidity        sql.NullFloat64 `db:"min_humidity"`
	MinSoilMoisture    sql.NullFloat64 `db:"min_soil_moisture"`
	MinSoilTemperature sql.NullFloat64 `db:"min_soil_temperature"`
	MaxTemperature     sql.NullFloat64 `db:"max_temperature"`
	MaxHumidity        sql.NullFloat64 `db:"max_humidity"`
	MaxSoilMoisture    sql.NullFloat64 `db:"max_soil_moisture"`
	MaxSoilTemperature sql.NullFloat64 `db:"max_soil_temperature"`
	TotalReadings      int             `db:"total_readings"`
	RainCount          int             `db:"rain_count"`
}

// Stats aggregates readings created at or after since. Aggregates over
// an empty window come back NULL and stay nil in the result.
func (r *SensorReadingRepo) Stats(ctx context.Context, since time.Time) (models.SensorStats, error) {
	query := `
		SELECT
			AVG(temperature)::float8 AS avg_temperature,
			AVG(humidity)::float8 AS avg_humidity,
			AVG(soil_moisture)::float8 AS avg_soil_moisture,
			AVG(soil_temperature)::float8 AS avg_soil_temperature,
			MIN(temperature)::float8 AS min_temperature,
			MIN(humidity)::float8 AS min_humidity,
			MIN(soil_moisture)::float8 AS min_soil_moisture,
			MIN(soil_temperature)::float8 AS min_soil_temperature,
			MAX(temperature)::float8 AS max_temperature,
			MAX(humidity)::float8 AS max_humidity,
			MAX(soil_moisture)::float8 AS max_soil_moisture,
			MAX(soil_temperature)::float8 AS max_soil_temperature,
			COUNT(*) AS total_readings,
			COUNT(*) FILTER (WHERE rain_detected) AS rain_count
		FROM sensor_readings
		WHERE created_at >= $1`

	row := sensorStatsRow{}
	if err := r.db.GetDB().GetContext(ctx, &row, query, since); err != nil {
		nuts.L.Errorf("[SensorReadingRepository] Failed to aggregate stats: %v", err)
		return models.SensorStats{}, errors.NewDatabaseError("failed to get sensor stats", err)
	}

	return models.SensorStats{
		Average: models.SensorMetricAggregate{
			Temperature:     nullableFloat(row.AvgTemperature),
			Humidity:        nullableFloat(row.AvgHumidity),
			SoilMoisture:    nullableFloat(row.AvgSoilMoisture),
			SoilTemperature: nullableFloat(row.AvgSoilTemperature),
		},
		Minimum: models.SensorMetricAggregate{
			Temperature:     nullableFloat(row.MinTemperature),
			Humidity:        nullableFloat(row.MinHumidity),
			SoilMoisture:    nullableFloat(row.MinSoilMoisture),
			SoilTemperature: nullableFloat(row.MinSoilTemperature),
		},
		Maximum: models.SensorMetricAggregate{
			Temperature:     nullableFloat(row.MaxTemperature),
			Humidity:        nullableFloat(row.MaxHumidity),
			SoilMoisture:    nullableFloat(row.MaxSoilMoisture),
			SoilTemperature: nullableFloat(row.MaxSoilTemperature),
		},
		TotalReadings:      row.TotalReadings,
		RainDetectionCount: row.RainCount,
	}, nil
}

// DeleteBefore removes readings created strictly before cutoff and
// returns the number of rows deleted.
func (r *SensorReadingRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM sensor_readings WHERE created_at < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete old sensor readings", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[SensorReadingRepository] Deleted %d old sensor readings before %v", rows, cutoff)
	return rows, nil
}
