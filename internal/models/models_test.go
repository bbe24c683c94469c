package models

import (
	"testing"

	"github.com/smartfarm/irrigation-hub/internal/errors"
)

func TestRelayEventValidate(t *testing.T) {
	event := RelayEvent{RelayStatus: true, TriggerReason: TriggerReasonAuto, SensorReadingID: "sr_1"}
	if err := event.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	event = RelayEvent{RelayStatus: true, SensorReadingID: "sr_1"}
	if err := event.Validate(); !errors.IsValidation(err) {
		t.Errorf("missing trigger reason should fail validation, got %v", err)
	}

	event = RelayEvent{RelayStatus: true, TriggerReason: TriggerReasonFrontend}
	if err := event.Validate(); !errors.IsValidation(err) {
		t.Errorf("missing reading reference should fail validation, got %v", err)
	}
}

func TestRelayEventStateDescription(t *testing.T) {
	on := RelayEvent{RelayStatus: true}
	off := RelayEvent{RelayStatus: false}
	if on.StateDescription() != "ON" || off.StateDescription() != "OFF" {
		t.Errorf("got %q / %q", on.StateDescription(), off.StateDescription())
	}
}

func TestSensorReadingValidateBoundaries(t *testing.T) {
	reading := SensorReading{Temperature: -50, Humidity: 0, SoilMoisture: 0, WaterLevel: WaterLevelLow}
	if err := reading.Validate(); err != nil {
		t.Errorf("lower boundary values are valid: %v", err)
	}

	soilTemp := 60.0
	reading = SensorReading{Temperature: 100, Humidity: 100, SoilMoisture: 100, SoilTemperature: &soilTemp, WaterLevel: WaterLevelHigh}
	if err := reading.Validate(); err != nil {
		t.Errorf("upper boundary values are valid: %v", err)
	}

	soilTemp = 60.1
	reading.SoilTemperature = &soilTemp
	if err := reading.Validate(); !errors.IsValidation(err) {
		t.Errorf("soil temperature above 60 must fail, got %v", err)
	}
}

func TestNewPaginationMeta(t *testing.T) {
	cases := []struct {
		total         int64
		limit, offset int
		hasNext       bool
		hasPrev       bool
	}{
		{25, 10, 0, true, false},
		{25, 10, 10, true, true},
		{25, 10, 20, false, true},
		{10, 10, 0, false, false},
		{0, 10, 0, false, false},
		{11, 10, 0, true, false},
	}
	for _, tc := range cases {
		meta := NewPaginationMeta(tc.total, tc.limit, tc.offset)
		if meta.HasNext != tc.hasNext || meta.HasPrev != tc.hasPrev {
			t.Errorf("total=%d limit=%d offset=%d: hasNext=%v hasPrev=%v, want %v/%v",
				tc.total, tc.limit, tc.offset, meta.HasNext, meta.HasPrev, tc.hasNext, tc.hasPrev)
		}
	}
}
