// FilePath: internal/mqtt/listener.go
package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/smartfarm/irrigation-hub/internal/config"
	"github.com/smartfarm/irrigation-hub/internal/hubservice"
	"github.com/smartfarm/irrigation-hub/internal/models"
	"github.com/smartfarm/irrigation-hub/internal/monitoring"
	nuts "github.com/vaudience/go-nuts"
)

const messageTimeout = 10 * time.Second

// Listener subscribes to the sensor and relay topic patterns and
// routes inbound payloads into the same service operations the HTTP
// layer uses. Messages are fire-and-forget: anything unparseable or
// unresolvable is logged and dropped, never retried.
type Listener struct {
	client        *Client
	svc           *hubservice.HubService
	metrics       *monitoring.Service
	sensorTopics  []string
	relayTopics   []string
	readingMaxAge time.Duration
}

// NewListener wires the listener; metrics may be nil.
func NewListener(client *Client, svc *hubservice.HubService, metrics *monitoring.Service, cfg config.MQTTConfig) *Listener {
	return &Listener{
		client:        client,
		svc:           svc,
		metrics:       metrics,
		sensorTopics:  cfg.SensorTopicList(),
		relayTopics:   cfg.RelayTopicList(),
		readingMaxAge: cfg.ReadingMaxAge,
	}
}

// Start subscribes to all configured topics with QoS 1.
func (l *Listener) Start() error {
	seen := map[string]bool{}
	for _, topic := range append(append([]string{}, l.sensorTopics...), l.relayTopics...) {
		if seen[topic] {
			continue
		}
		seen[topic] = true
		if err := l.client.Subscribe(topic, 1, l.handleMessage); err != nil {
			return err
		}
	}
	return nil
}

func (l *Listener) handleMessage(_ paho.Client, msg paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()

	topic := msg.Topic()
	switch {
	case l.isSensorTopic(topic):
		l.handleSensorMessage(ctx, topic, msg.Payload())
	case l.isRelayTopic(topic):
		l.handleRelayMessage(ctx, topic, msg.Payload())
	}
}

func (l *Listener) isSensorTopic(topic string) bool {
	for _, t := range l.sensorTopics {
		if MatchTopic(t, topic) {
			return true
		}
	}
	return strings.Contains(topic, "/sensor")
}

func (l *Listener) isRelayTopic(topic string) bool {
	for _, t := range l.relayTopics {
		if MatchTopic(t, topic) {
			return true
		}
	}
	return strings.Contains(topic, "/relay")
}

func (l *Listener) handleSensorMessage(ctx context.Context, topic string, payload []byte) {
	reading := &models.SensorReading{}
	if err := json.Unmarshal(payload, reading); err != nil {
		nuts.L.Warnf("[MQTT] Ignoring non-JSON sensor message on %s: %v", topic, err)
		l.metrics.RecordMQTTMessage("sensor", "rejected")
		return
	}
	reading.ID = "" // ids are assigned by storage, never by devices

	if err := l.svc.CreateSensorReading(ctx, reading); err != nil {
		nuts.L.Warnf("[MQTT] Failed to store sensor data from %s: %v", topic, err)
		l.metrics.RecordMQTTMessage("sensor", "rejected")
		return
	}

	nuts.L.Infof("[MQTT] Sensor data %s stored from %s", reading.ID, topic)
	l.metrics.RecordMQTTMessage("sensor", "stored")
}

func (l *Listener) handleRelayMessage(ctx context.Context, topic string, payload []byte) {
	parsed := TryParseJSON(payload)
	if parsed == nil {
		nuts.L.Warnf("[MQTT] Ignoring non-JSON relay message on %s", topic)
		l.metrics.RecordMQTTMessage("relay", "rejected")
		return
	}

	relayStatus, err := ParseRelayStatus(parsed)
	if err != nil {
		nuts.L.Warnf("[MQTT] Rejected relay payload on %s: %v (payload: %s)", topic, err, string(payload))
		l.metrics.RecordMQTTMessage("relay", "rejected")
		return
	}
	triggerReason := ParseTriggerReason(parsed)

	readingID := l.resolveReadingID(ctx, parsed)
	if readingID == "" {
		nuts.L.Warnf("[MQTT] No sensor reading reference available for relay message on %s; dropping", topic)
		l.metrics.RecordMQTTMessage("relay", "dropped")
		return
	}

	result, err := l.svc.RecordRelayStateChange(ctx, relayStatus, triggerReason, readingID)
	if err != nil {
		nuts.L.Errorf("[MQTT] Failed to store relay state change from %s: %v", topic, err)
		l.metrics.RecordMQTTMessage("relay", "dropped")
		return
	}
	if !result.Changed {
		nuts.L.Infof("[MQTT] Relay message on %s ignored: %s", topic, result.Message)
		l.metrics.RecordRelayTransition("rejected")
		l.metrics.RecordMQTTMessage("relay", "rejected")
		return
	}

	nuts.L.Infof("[MQTT] Relay state logged from %s -> %s", topic, result.Event.StateDescription())
	l.metrics.RecordRelayTransition("accepted")
	l.metrics.RecordMQTTMessage("relay", "stored")
}

// resolveReadingID finds the sensor reading a relay transition should
// be attributed to: an explicit reference, then an embedded reading
// (stored first), then the latest stored reading if it is recent
// enough to plausibly describe the conditions at transition time.
func (l *Listener) resolveReadingID(ctx context.Context, payload map[string]any) string {
	if id := ParseReadingID(payload); id != "" {
		return id
	}

	if nested, ok := payload["sensor"].(map[string]any); ok {
		raw, err := json.Marshal(nested)
		if err == nil {
			reading := &models.SensorReading{}
			if err := json.Unmarshal(raw, reading); err == nil {
				reading.ID = ""
				if err := l.svc.CreateSensorReading(ctx, reading); err == nil {
					return reading.ID
				}
				nuts.L.Warnf("[MQTT] Failed to create sensor data from relay message: embedded reading invalid")
			}
		}
	}

	latest, err := l.svc.GetLatestSensorReading(ctx)
	if err != nil {
		return ""
	}
	if age := time.Since(latest.CreatedAt); age > l.readingMaxAge {
		nuts.L.Warnf("[MQTT] Latest sensor reading is %v old (max %v); not attributing relay transition to it",
			age.Round(time.Second), l.readingMaxAge)
		return ""
	}
	return latest.ID
}
