// FilePath: api/resources/api.resource.sensordata.go
package resources

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/hubservice"
	"github.com/smartfarm/irrigation-hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// SensorDataHandlers encapsulates the sensor data HTTP handlers
type SensorDataHandlers struct {
	hubservice *hubservice.HubService
}

type sensorDataQuery struct {
	Limit  int        `schema:"limit"`
	Offset int        `schema:"offset"`
	From   *time.Time `schema:"from"`
	To     *time.Time `schema:"to"`
}

// CreateSensorData stores a reading posted over HTTP. Devices normally
// report over MQTT; this endpoint covers manual entry and backfills.
func (h *SensorDataHandlers) CreateSensorData(w http.ResponseWriter, r *http.Request) {
	var reading models.SensorReading
	requestID := nuts.NID("req", 12)

	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	reading.ID = ""

	if err := h.hubservice.CreateSensorReading(r.Context(), &reading); err != nil {
		respondService(w, requestID, "failed to create sensor reading", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: "Sensor reading created successfully",
		Data:    reading,
	})
}

// GetLatest returns the most recent reading, 404 when none exists.
func (h *SensorDataHandlers) GetLatest(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	reading, err := h.hubservice.GetLatestSensorReading(r.Context())
	if err != nil {
		respondService(w, requestID, "failed to get latest sensor reading", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Latest sensor reading retrieved successfully",
		Data:    reading,
	})
}

// GetStats aggregates readings over the requested window.
func (h *SensorDataHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	hours, err := parseHoursParam(r)
	if err != nil {
		respondWithError(w, errors.NewValidationError(err.Error(), nil).WithRequestID(requestID))
		return
	}

	stats, err := h.hubservice.GetSensorStats(r.Context(), hours)
	if err != nil {
		respondService(w, requestID, "failed to get sensor stats", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Sensor stats retrieved successfully",
		Data:    stats,
	})
}

// GetHealth reports sensor ingest health.
func (h *SensorDataHandlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	health, err := h.hubservice.GetSensorHealth(r.Context())
	if err != nil {
		respondService(w, requestID, "failed to get sensor health", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Sensor health retrieved successfully",
		Data:    health,
	})
}

// ListSensorData returns a page of readings, newest first.
func (h *SensorDataHandlers) ListSensorData(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	q := sensorDataQuery{Limit: 10, Offset: 0}
	if err := decodeQuery(r, &q); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}
	if err := validatePageParams(q.Limit, q.Offset); err != nil {
		respondWithError(w, errors.NewValidationError(err.Error(), nil).WithRequestID(requestID))
		return
	}

	filters := models.SensorReadingFilters{From: q.From, To: q.To}
	readings, meta, err := h.hubservice.ListSensorReadings(r.Context(), filters, q.Limit, q.Offset)
	if err != nil {
		respondService(w, requestID, "failed to list sensor readings", err)
		return
	}

	respondWithJSON(w, http.StatusOK, paginatedResponse{
		Success: true,
		Message: "Sensor readings retrieved successfully",
		Data:    readings,
		Meta:    meta,
	})
}

// GetSensorData returns a single reading by ID.
func (h *SensorDataHandlers) GetSensorData(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	reading, err := h.hubservice.GetSensorReading(r.Context(), id)
	if err != nil {
		respondService(w, requestID, "failed to get sensor reading", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Sensor reading retrieved successfully",
		Data:    reading,
	})
}

// Cleanup deletes readings older than the retention cutoff.
func (h *SensorDataHandlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	days, err := parseDaysParam(r)
	if err != nil {
		respondWithError(w, errors.NewValidationError(err.Error(), nil).WithRequestID(requestID))
		return
	}

	result, err := h.hubservice.CleanupOldSensorReadings(r.Context(), days)
	if err != nil {
		respondService(w, requestID, "failed to clean up sensor readings", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Old sensor readings deleted successfully",
		Data:    result,
	})
}
