package config

import (
	"reflect"
	"testing"
)

func TestSplitTopics(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"irrigation/+/sensor", []string{"irrigation/+/sensor"}},
		{"a/b, c/d ,e/#", []string{"a/b", "c/d", "e/#"}},
		{" , ,", []string{}},
		{"", []string{}},
	}
	for _, tc := range cases {
		got := splitTopics(tc.raw)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitTopics(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func validBase() *Config {
	cfg := &Config{}
	cfg.Database.Postgres.Host = "localhost"
	cfg.Retention.Days = 30
	return cfg
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(validBase()); err != nil {
		t.Errorf("base config should validate: %v", err)
	}

	cfg := validBase()
	cfg.Database.Postgres.Host = ""
	if err := validateConfig(cfg); err == nil {
		t.Error("missing postgres host must be rejected")
	}

	cfg = validBase()
	cfg.Retention.Days = 6
	if err := validateConfig(cfg); err == nil {
		t.Error("retention below 7 days must be rejected")
	}

	cfg = validBase()
	cfg.Retention.Days = 0
	if err := validateConfig(cfg); err != nil {
		t.Errorf("retention 0 disables the sweeper and must be accepted: %v", err)
	}

	cfg = validBase()
	cfg.MQTT.Enabled = true
	cfg.MQTT.BrokerURL = ""
	if err := validateConfig(cfg); err == nil {
		t.Error("enabled mqtt without broker url must be rejected")
	}

	cfg = validBase()
	cfg.MQTT.Enabled = true
	cfg.MQTT.BrokerURL = "tcp://localhost:1883"
	cfg.MQTT.SensorTopics = ""
	cfg.MQTT.RelayTopics = " , "
	if err := validateConfig(cfg); err == nil {
		t.Error("enabled mqtt without any topics must be rejected")
	}
}
