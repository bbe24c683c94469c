// FilePath: internal/hubservice/hubservice.relay_test.go
package hubservice

import (
	"context"
	"testing"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/errors"
	"github.com/smartfarm/irrigation-hub/internal/models"
)

func TestRecordRelayStateChangeTransitions(t *testing.T) {
	svc, _, relay := newTestService()
	ctx := context.Background()

	result, err := svc.RecordRelayStateChange(ctx, true, models.TriggerReasonAuto, "sr_seed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Changed {
		t.Fatal("first ON should be recorded")
	}
	if result.Message != "Relay activated successfully" {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if result.Event == nil || !result.Event.RelayStatus {
		t.Error("result should carry the stored ON event")
	}
	if result.Event.SensorData == nil || result.Event.SensorData.ID != "sr_seed" {
		t.Error("result event should embed the referenced reading")
	}

	// Same state again is suppressed, not an error.
	result, err = svc.RecordRelayStateChange(ctx, true, models.TriggerReasonAuto, "sr_seed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Changed {
		t.Fatal("duplicate ON should be suppressed")
	}
	if result.Message != "Relay is already ON" {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if result.Event != nil {
		t.Error("suppressed change should not carry an event")
	}
	if len(relay.events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(relay.events))
	}

	result, err = svc.RecordRelayStateChange(ctx, false, models.TriggerReasonFrontend, "sr_seed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Changed {
		t.Fatal("OFF after ON should be recorded")
	}
	if result.Message != "Relay deactivated successfully" {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if len(relay.events) != 2 {
		t.Fatalf("expected 2 stored events, got %d", len(relay.events))
	}
}

func TestRecordRelayStateChangeOffOnEmptyLog(t *testing.T) {
	svc, _, relay := newTestService()

	// An empty log counts as OFF, so the first OFF is a no-op.
	result, err := svc.RecordRelayStateChange(context.Background(), false, models.TriggerReasonAuto, "sr_seed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Changed {
		t.Error("OFF on empty log should be suppressed")
	}
	if result.Message != "Relay is already OFF" {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if len(relay.events) != 0 {
		t.Errorf("no event should be stored, got %d", len(relay.events))
	}
}

func TestRecordRelayStateChangeUnknownReading(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.RecordRelayStateChange(context.Background(), true, models.TriggerReasonAuto, "sr_missing")
	if err == nil {
		t.Fatal("expected an error for unknown reading")
	}
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRecordRelayStateChangeRejectsEmptyReason(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.RecordRelayStateChange(context.Background(), true, "", "sr_seed")
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGetCurrentRelayStatus(t *testing.T) {
	svc, _, relay := newTestService()
	ctx := context.Background()

	status, err := svc.GetCurrentRelayStatus(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.RelayStatus {
		t.Error("empty log should report OFF")
	}

	relay.insert(&models.RelayEvent{RelayStatus: true, TriggerReason: models.TriggerReasonAuto, SensorReadingID: "sr_seed"})
	status, err = svc.GetCurrentRelayStatus(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.RelayStatus {
		t.Error("latest event is ON, status should be ON")
	}
	if status.Timestamp.IsZero() {
		t.Error("status should be timestamped")
	}
}

func durationFixture(relay *fakeRelayRepo, base time.Time, transitions ...struct {
	on     bool
	offset time.Duration
}) {
	for _, tr := range transitions {
		relay.insert(&models.RelayEvent{
			RelayStatus:     tr.on,
			TriggerReason:   models.TriggerReasonAuto,
			SensorReadingID: "sr_seed",
			CreatedAt:       base.Add(tr.offset),
		})
	}
}

type transition = struct {
	on     bool
	offset time.Duration
}

func TestGetOperationDurationPairsIntervals(t *testing.T) {
	svc, _, relay := newTestService()
	base := time.Now().Add(-2 * time.Hour)

	durationFixture(relay, base,
		transition{true, 0},
		transition{false, 10 * time.Minute},
		transition{true, 30 * time.Minute},
		transition{false, 50 * time.Minute},
	)

	report, err := svc.GetOperationDuration(context.Background(), 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OperationCount != 2 {
		t.Errorf("expected 2 operations, got %d", report.OperationCount)
	}
	if report.TotalOnDurationMinutes != 30 {
		t.Errorf("expected 30 total minutes, got %d", report.TotalOnDurationMinutes)
	}
	if report.AverageOnDurationMinutes != 15 {
		t.Errorf("expected 15 average minutes, got %d", report.AverageOnDurationMinutes)
	}
	if report.PeriodHours != 24 {
		t.Errorf("expected period 24, got %d", report.PeriodHours)
	}
}

func TestGetOperationDurationIgnoresOpenInterval(t *testing.T) {
	svc, _, relay := newTestService()
	base := time.Now().Add(-time.Hour)

	durationFixture(relay, base,
		transition{true, 0},
		transition{false, 10 * time.Minute},
		transition{true, 20 * time.Minute}, // still running
	)

	report, err := svc.GetOperationDuration(context.Background(), 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OperationCount != 1 {
		t.Errorf("expected 1 completed operation, got %d", report.OperationCount)
	}
	if report.TotalOnDurationMinutes != 10 {
		t.Errorf("expected 10 total minutes, got %d", report.TotalOnDurationMinutes)
	}
}

func TestGetOperationDurationIgnoresLeadingOff(t *testing.T) {
	svc, _, relay := newTestService()
	base := time.Now().Add(-time.Hour)

	// The leading OFF closes an interval that started before the
	// window; it must not be attributed to this window.
	durationFixture(relay, base,
		transition{false, 0},
		transition{true, 5 * time.Minute},
		transition{false, 15 * time.Minute},
	)

	report, err := svc.GetOperationDuration(context.Background(), 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OperationCount != 1 {
		t.Errorf("expected 1 operation, got %d", report.OperationCount)
	}
	if report.TotalOnDurationMinutes != 10 {
		t.Errorf("expected 10 total minutes, got %d", report.TotalOnDurationMinutes)
	}
}

func TestGetOperationDurationEmptyWindow(t *testing.T) {
	svc, _, _ := newTestService()

	report, err := svc.GetOperationDuration(context.Background(), 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OperationCount != 0 || report.TotalOnDurationMinutes != 0 || report.AverageOnDurationMinutes != 0 {
		t.Errorf("empty window should report zeros, got %+v", report)
	}
}

func TestGetRelayStats(t *testing.T) {
	svc, _, relay := newTestService()
	base := time.Now().Add(-time.Hour)

	durationFixture(relay, base,
		transition{true, 0},
		transition{false, 10 * time.Minute},
		transition{true, 20 * time.Minute},
		transition{false, 30 * time.Minute},
	)

	stats, err := svc.GetRelayStats(context.Background(), 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalOperations != 4 || stats.OnCount != 2 || stats.OffCount != 2 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.OnPercentage != 50 {
		t.Errorf("expected 50%% on, got %v", stats.OnPercentage)
	}
}

func TestGetRelayStatsEmptyWindow(t *testing.T) {
	svc, _, _ := newTestService()

	stats, err := svc.GetRelayStats(context.Background(), 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalOperations != 0 {
		t.Errorf("expected 0 operations, got %d", stats.TotalOperations)
	}
	if stats.OnPercentage != 0 {
		t.Errorf("on percentage must stay 0 without operations, got %v", stats.OnPercentage)
	}
}

func TestListRelayEventsClampsPagination(t *testing.T) {
	svc, _, relay := newTestService()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		relay.insert(&models.RelayEvent{
			RelayStatus:     i%2 == 0,
			TriggerReason:   models.TriggerReasonAuto,
			SensorReadingID: "sr_seed",
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		})
	}

	events, meta, err := svc.ListRelayEvents(context.Background(), models.RelayEventFilters{}, 0, -3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Limit != 10 || meta.Offset != 0 {
		t.Errorf("expected clamped limit=10 offset=0, got limit=%d offset=%d", meta.Limit, meta.Offset)
	}
	if len(events) != 10 {
		t.Errorf("expected 10 events, got %d", len(events))
	}
	if meta.Total != 15 || !meta.HasNext || meta.HasPrev {
		t.Errorf("unexpected meta: %+v", meta)
	}
	// Newest first.
	if !events[0].CreatedAt.After(events[1].CreatedAt) {
		t.Error("events should be ordered newest first")
	}
}

func TestListRelayEventsStatusFilter(t *testing.T) {
	svc, _, relay := newTestService()
	base := time.Now().Add(-time.Hour)
	durationFixture(relay, base,
		transition{true, 0},
		transition{false, 10 * time.Minute},
		transition{true, 20 * time.Minute},
	)

	on := true
	events, meta, err := svc.ListRelayEvents(context.Background(), models.RelayEventFilters{Status: &on}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Total != 2 || len(events) != 2 {
		t.Fatalf("expected 2 ON events, got total=%d len=%d", meta.Total, len(events))
	}
	for _, e := range events {
		if !e.RelayStatus {
			t.Error("filter should only return ON events")
		}
	}
}

func TestCleanupOldRelayEvents(t *testing.T) {
	svc, _, relay := newTestService()
	relay.insert(&models.RelayEvent{
		RelayStatus: true, TriggerReason: models.TriggerReasonAuto,
		SensorReadingID: "sr_seed", CreatedAt: time.Now().AddDate(0, 0, -10),
	})
	relay.insert(&models.RelayEvent{
		RelayStatus: false, TriggerReason: models.TriggerReasonAuto,
		SensorReadingID: "sr_seed", CreatedAt: time.Now().AddDate(0, 0, -1),
	})

	result, err := svc.CleanupOldRelayEvents(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeletedCount != 1 {
		t.Errorf("expected 1 deleted, got %d", result.DeletedCount)
	}
	if result.DaysKept != 7 {
		t.Errorf("expected days_kept=7, got %d", result.DaysKept)
	}
	if len(relay.events) != 1 {
		t.Errorf("expected 1 surviving event, got %d", len(relay.events))
	}
}

func TestGetLatestRelayEventNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetLatestRelayEvent(context.Background())
	if !errors.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestGetRelayHealth(t *testing.T) {
	svc, _, relay := newTestService()
	ctx := context.Background()

	health, err := svc.GetRelayHealth(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if health.Status != "warning" || health.HasData {
		t.Errorf("empty log should be a warning, got %+v", health)
	}

	relay.insert(&models.RelayEvent{
		RelayStatus: true, TriggerReason: models.TriggerReasonAuto,
		SensorReadingID: "sr_seed", CreatedAt: time.Now().Add(-5 * time.Minute),
	})
	health, err = svc.GetRelayHealth(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if health.Status != "healthy" || !health.HasData || !health.CurrentRelayStatus {
		t.Errorf("unexpected health: %+v", health)
	}
	if health.LastLogAgeMinutes == nil || *health.LastLogAgeMinutes < 4 || *health.LastLogAgeMinutes > 6 {
		t.Errorf("unexpected log age: %v", health.LastLogAgeMinutes)
	}
	if health.RecentOperations != 1 {
		t.Errorf("expected 1 recent operation, got %d", health.RecentOperations)
	}
}
