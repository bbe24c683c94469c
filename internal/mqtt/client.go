// FilePath: internal/mqtt/client.go
package mqtt

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/smartfarm/irrigation-hub/internal/config"
	"github.com/sony/gobreaker"
	nuts "github.com/vaudience/go-nuts"
)

const publishTimeout = 5 * time.Second

// Client wraps the shared long-lived MQTT connection. Publishing and
// subscribing multiplex over the one connection; publishes go through
// a circuit breaker so a dead broker fails fast instead of piling up
// blocked requests.
type Client struct {
	client  paho.Client
	cfg     config.MQTTConfig
	breaker *gobreaker.CircuitBreaker
}

// NewClient connects to the broker. The initial connect is gated by a
// bounded exponential backoff (the one-time "wait until connected"
// gate); after that paho's auto-reconnect owns the connection.
func NewClient(cfg config.MQTTConfig) (*Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = nuts.NID("irrigationhub", 8)
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		nuts.L.Infof("[MQTT] Connected to broker %s", cfg.BrokerURL)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		nuts.L.Warnf("[MQTT] Connection lost: %v", err)
	})

	client := paho.NewClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.ConnectTimeout
	err := backoff.Retry(func() error {
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			nuts.L.Warnf("[MQTT] Connect attempt failed: %v", token.Error())
			return token.Error()
		}
		return nil
	}, bo)
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection within %v: %w", cfg.ConnectTimeout, err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "mqtt-publish",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			nuts.L.Warnf("[MQTT] Publish breaker %s: %v -> %v", name, from, to)
		},
	})

	return &Client{client: client, cfg: cfg, breaker: breaker}, nil
}

// Publish sends a payload through the circuit breaker.
func (c *Client) Publish(topic string, qos byte, retain bool, payload []byte) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		token := c.client.Publish(topic, qos, retain, payload)
		if !token.WaitTimeout(publishTimeout) {
			return nil, fmt.Errorf("publish to %s timed out after %v", topic, publishTimeout)
		}
		return nil, token.Error()
	})
	return err
}

// Subscribe registers a handler for a topic filter.
func (c *Client) Subscribe(topic string, qos byte, handler paho.MessageHandler) error {
	if token := c.client.Subscribe(topic, qos, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	nuts.L.Infof("[MQTT] Subscribed to %s", topic)
	return nil
}

// IsConnected reports the connection state.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Topics lists all configured subscription patterns.
func (c *Client) Topics() []string {
	return append(c.cfg.SensorTopicList(), c.cfg.RelayTopicList()...)
}

// Disconnect closes the connection, allowing in-flight work to finish.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
	nuts.L.Infof("[MQTT] Disconnected")
}
