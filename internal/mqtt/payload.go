// FilePath: internal/mqtt/payload.go
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoRelayStatus means the payload carries none of the
	// recognized status fields.
	ErrNoRelayStatus = errors.New("relay payload missing status/state")
	// ErrAmbiguousRelayStatus means recognized fields disagree; the
	// payload is rejected rather than guessed at.
	ErrAmbiguousRelayStatus = errors.New("relay payload has conflicting status fields")
)

// MatchTopic reports whether an MQTT topic filter (with + and #
// wildcards) matches a concrete topic.
func MatchTopic(filter, topic string) bool {
	if filter == "#" {
		return true
	}
	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")
	for i, fp := range filterParts {
		if fp == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if fp == "+" {
			continue
		}
		if fp != topicParts[i] {
			return false
		}
	}
	return len(filterParts) == len(topicParts)
}

// TryParseJSON decodes a payload into a generic map, returning nil for
// anything that is not a JSON object.
func TryParseJSON(payload []byte) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil
	}
	return parsed
}

// ParseRelayStatus resolves the relay state from a loosely-typed
// payload. Recognized fields, in precedence order: relayStatus (bool),
// status (bool), state (string on/off/1/0/true/false, number, bool).
// Every recognized field present must agree; conflicting values are an
// error, not a guess.
func ParseRelayStatus(payload map[string]any) (bool, error) {
	var candidates []bool

	if v, ok := payload["relayStatus"].(bool); ok {
		candidates = append(candidates, v)
	}
	if v, ok := payload["status"].(bool); ok {
		candidates = append(candidates, v)
	}
	if raw, ok := payload["state"]; ok {
		if v, ok := parseStateField(raw); ok {
			candidates = append(candidates, v)
		}
	}

	if len(candidates) == 0 {
		return false, ErrNoRelayStatus
	}
	for _, c := range candidates[1:] {
		if c != candidates[0] {
			return false, ErrAmbiguousRelayStatus
		}
	}
	return candidates[0], nil
}

func parseStateField(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case string:
		switch strings.ToLower(v) {
		case "on", "1", "true":
			return true, true
		case "off", "0", "false":
			return false, true
		}
	}
	return false, false
}

// ParseTriggerReason resolves the trigger reason, preferring
// triggerReason over reason and defaulting to "auto".
func ParseTriggerReason(payload map[string]any) string {
	if v, ok := payload["triggerReason"].(string); ok && v != "" {
		return v
	}
	if v, ok := payload["reason"].(string); ok && v != "" {
		return v
	}
	return "auto"
}

// ParseReadingID resolves an explicit sensor reading reference, which
// devices send as a string or a number. Empty when absent.
func ParseReadingID(payload map[string]any) string {
	switch v := payload["sensorReadingId"].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}
