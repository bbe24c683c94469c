// FilePath: api/resources/api.resource.relaylog.go
package resources

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/hubservice"
	"github.com/smartfarm/irrigation-hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// RelayLogHandlers encapsulates the relay log HTTP handlers
type RelayLogHandlers struct {
	hubservice *hubservice.HubService
}

var (
	errHoursRange  = stderrors.New("hours must be between 1 and 168")
	errDaysRange   = stderrors.New("cannot delete logs newer than 7 days")
	errLimitRange  = stderrors.New("limit must be between 1 and 100")
	errOffsetRange = stderrors.New("offset must not be negative")
)

// relayLogQuery carries the decoded list parameters.
type relayLogQuery struct {
	Limit  int        `schema:"limit"`
	Offset int        `schema:"offset"`
	Status *bool      `schema:"status"`
	From   *time.Time `schema:"from"`
	To     *time.Time `schema:"to"`
}

// stateChangeRequest is the body of a state change call. RelayStatus is
// a pointer so a missing field is distinguishable from false.
type stateChangeRequest struct {
	RelayStatus     *bool  `json:"relay_status"`
	TriggerReason   string `json:"trigger_reason"`
	SensorReadingID string `json:"sensor_reading_id"`
}

// @Summary Create a relay log entry
// @Description Record a relay event without any duplicate-state check
// @Tags relay-log
// @Accept json
// @Produce json
// @Param event body models.RelayEvent true "Relay event details"
// @Success 201 {object} models.RelayEvent
// @Failure 400 {object} errors.APIError
// @Router /relay-log [post]
func (h *RelayLogHandlers) CreateRelayLog(w http.ResponseWriter, r *http.Request) {
	var event models.RelayEvent
	requestID := nuts.NID("req", 12)

	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.CreateRelayEvent(r.Context(), &event); err != nil {
		respondService(w, requestID, "failed to create relay log", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: "Relay log created successfully",
		Data:    event,
	})
}

// @Summary Record a relay state change
// @Description Store the event only if it differs from the current relay state
// @Tags relay-log
// @Accept json
// @Produce json
// @Param change body stateChangeRequest true "Desired relay state"
// @Success 201 {object} models.StateChangeResult
// @Failure 400 {object} errors.APIError
// @Router /relay-log/state-change [post]
func (h *RelayLogHandlers) LogStateChange(w http.ResponseWriter, r *http.Request) {
	var req stateChangeRequest
	requestID := nuts.NID("req", 12)

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.RelayStatus == nil {
		respondWithError(w, errors.NewValidationError("relay_status is required", nil).WithRequestID(requestID))
		return
	}

	result, err := h.hubservice.RecordRelayStateChange(r.Context(), *req.RelayStatus, req.TriggerReason, req.SensorReadingID)
	if err != nil {
		respondService(w, requestID, "failed to record state change", err)
		return
	}

	if !result.Changed {
		respondWithJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Message: result.Message,
			Data:    result,
		})
		return
	}

	respondWithJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: result.Message,
		Data:    result,
	})
}

// @Summary Get the current relay status
// @Tags relay-log
// @Produce json
// @Success 200 {object} models.RelayStatus
// @Router /relay-log/status [get]
func (h *RelayLogHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	status, err := h.hubservice.GetCurrentRelayStatus(r.Context())
	if err != nil {
		respondService(w, requestID, "failed to get relay status", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Relay status retrieved successfully",
		Data:    status,
	})
}

// @Summary Get relay operation statistics
// @Tags relay-log
// @Produce json
// @Param hours query int false "Window size in hours (1-168, default 24)"
// @Success 200 {object} models.RelayStats
// @Failure 400 {object} errors.APIError
// @Router /relay-log/stats [get]
func (h *RelayLogHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	hours, err := parseHoursParam(r)
	if err != nil {
		respondWithError(w, errors.NewValidationError(err.Error(), nil).WithRequestID(requestID))
		return
	}

	stats, err := h.hubservice.GetRelayStats(r.Context(), hours)
	if err != nil {
		respondService(w, requestID, "failed to get relay stats", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Relay stats retrieved successfully",
		Data:    stats,
	})
}

// @Summary Get relay on-duration totals
// @Description Pair ON/OFF transitions within the window and sum run times
// @Tags relay-log
// @Produce json
// @Param hours query int false "Window size in hours (1-168, default 24)"
// @Success 200 {object} models.DurationReport
// @Failure 400 {object} errors.APIError
// @Router /relay-log/duration [get]
func (h *RelayLogHandlers) GetDuration(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	hours, err := parseHoursParam(r)
	if err != nil {
		respondWithError(w, errors.NewValidationError(err.Error(), nil).WithRequestID(requestID))
		return
	}

	report, err := h.hubservice.GetOperationDuration(r.Context(), hours)
	if err != nil {
		respondService(w, requestID, "failed to compute operation duration", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Operation duration retrieved successfully",
		Data:    report,
	})
}

// @Summary Get the most recent relay log entry
// @Tags relay-log
// @Produce json
// @Success 200 {object} models.RelayEvent
// @Failure 404 {object} errors.APIError
// @Router /relay-log/latest [get]
func (h *RelayLogHandlers) GetLatest(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	event, err := h.hubservice.GetLatestRelayEvent(r.Context())
	if err != nil {
		respondService(w, requestID, "failed to get latest relay log", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Latest relay log retrieved successfully",
		Data:    event,
	})
}

// @Summary Get relay subsystem health
// @Tags relay-log
// @Produce json
// @Success 200 {object} models.RelayHealth
// @Router /relay-log/health [get]
func (h *RelayLogHandlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	health, err := h.hubservice.GetRelayHealth(r.Context())
	if err != nil {
		respondService(w, requestID, "failed to get relay health", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Relay health retrieved successfully",
		Data:    health,
	})
}

// @Summary List relay log entries
// @Description Paginated listing, newest first, with optional status and time filters
// @Tags relay-log
// @Produce json
// @Param limit query int false "Page size (1-100, default 10)"
// @Param offset query int false "Offset for pagination"
// @Param status query bool false "Filter by relay status"
// @Param from query string false "RFC3339 lower bound on created_at"
// @Param to query string false "RFC3339 upper bound on created_at"
// @Success 200 {array} models.RelayEvent
// @Failure 400 {object} errors.APIError
// @Router /relay-log [get]
func (h *RelayLogHandlers) ListRelayLogs(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	q := relayLogQuery{Limit: 10, Offset: 0}
	if err := decodeQuery(r, &q); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}
	if err := validatePageParams(q.Limit, q.Offset); err != nil {
		respondWithError(w, errors.NewValidationError(err.Error(), nil).WithRequestID(requestID))
		return
	}

	filters := models.RelayEventFilters{Status: q.Status, From: q.From, To: q.To}
	events, meta, err := h.hubservice.ListRelayEvents(r.Context(), filters, q.Limit, q.Offset)
	if err != nil {
		respondService(w, requestID, "failed to list relay logs", err)
		return
	}

	respondWithJSON(w, http.StatusOK, paginatedResponse{
		Success: true,
		Message: "Relay logs retrieved successfully",
		Data:    events,
		Meta:    meta,
	})
}

// @Summary Get a relay log entry by ID
// @Tags relay-log
// @Produce json
// @Param id path string true "Relay log ID"
// @Success 200 {object} models.RelayEvent
// @Failure 404 {object} errors.APIError
// @Router /relay-log/{id} [get]
func (h *RelayLogHandlers) GetRelayLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	event, err := h.hubservice.GetRelayEvent(r.Context(), id)
	if err != nil {
		respondService(w, requestID, "failed to get relay log", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Relay log retrieved successfully",
		Data:    event,
	})
}

// @Summary Delete relay logs older than a cutoff
// @Tags relay-log
// @Produce json
// @Param days query int false "Retention in days (minimum 7, default 30)"
// @Success 200 {object} models.CleanupResult
// @Failure 400 {object} errors.APIError
// @Router /relay-log/cleanup [delete]
func (h *RelayLogHandlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	days, err := parseDaysParam(r)
	if err != nil {
		respondWithError(w, errors.NewValidationError(err.Error(), nil).WithRequestID(requestID))
		return
	}

	result, err := h.hubservice.CleanupOldRelayEvents(r.Context(), days)
	if err != nil {
		respondService(w, requestID, "failed to clean up relay logs", err)
		return
	}

	respondWithJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Old relay logs deleted successfully",
		Data:    result,
	})
}

// Helper functions

func parseHoursParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return 24, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 1 || hours > 168 {
		return 0, errHoursRange
	}
	return hours, nil
}

func parseDaysParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 30, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 7 {
		return 0, errDaysRange
	}
	return days, nil
}

func validatePageParams(limit, offset int) error {
	if limit < 1 || limit > 100 {
		return errLimitRange
	}
	if offset < 0 {
		return errOffsetRange
	}
	return nil
}
