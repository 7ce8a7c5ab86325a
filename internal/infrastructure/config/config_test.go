package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes content to a temporary config.yaml and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
mqtt:
  broker:
    host: "broker.example.com"
    port: 8883
    tls: true
    client_id: "downlink-test"
  auth:
    username: "svc"
  qos: 1
  connect_timeout: 30
downlink:
  fport: 85
  topic: "application/1/device/{device_eui}/command/down"
api:
  port: 4000
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.example.com")
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = false, want true")
	}
	if cfg.MQTT.GetConnectTimeout().Seconds() != 30 {
		t.Errorf("GetConnectTimeout() = %v, want 30s", cfg.MQTT.GetConnectTimeout())
	}
	if cfg.Downlink.Topic != "application/1/device/{device_eui}/command/down" {
		t.Errorf("Downlink.Topic = %q", cfg.Downlink.Topic)
	}

	// Defaults survive for keys absent from the file.
	if !cfg.Downlink.Confirmed {
		t.Error("Downlink.Confirmed = false, want default true")
	}
	if cfg.Downlink.WS558Encoding != EncodingLSBFirst {
		t.Errorf("Downlink.WS558Encoding = %q, want %q", cfg.Downlink.WS558Encoding, EncodingLSBFirst)
	}
	if cfg.MQTT.PublishTimeout != 10 {
		t.Errorf("MQTT.PublishTimeout = %d, want default 10", cfg.MQTT.PublishTimeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
downlink:
  fport: 0
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for fport 0, got nil")
	}
	if !strings.Contains(err.Error(), "downlink.fport") {
		t.Errorf("Load() error = %v, want mention of downlink.fport", err)
	}
}

func TestLoad_BadEnvOverride(t *testing.T) {
	t.Setenv("DOWNLINK_MQTT_PORT", "not-a-port")

	_, err := Load(writeConfig(t, "api:\n  port: 4000\n"))
	if err == nil {
		t.Error("Load() expected error for non-numeric DOWNLINK_MQTT_PORT")
	}
}

func TestConfig_Validate(t *testing.T) {
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"jwt secret set", func(c *Config) { c.Security.JWT.Secret = validJWTSecret }, false},
		{"msb first with fixed topic", func(c *Config) {
			c.Downlink.WS558Encoding = EncodingMSBFirst
			c.Downlink.FixedTopic = "downlink/panel"
		}, false},
		{"missing broker host", func(c *Config) { c.MQTT.Broker.Host = "" }, true},
		{"broker port zero", func(c *Config) { c.MQTT.Broker.Port = 0 }, true},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"zero connect timeout", func(c *Config) { c.MQTT.ConnectTimeout = 0 }, true},
		{"zero publish timeout", func(c *Config) { c.MQTT.PublishTimeout = 0 }, true},
		{"fport too high", func(c *Config) { c.Downlink.FPort = 224 }, true},
		{"empty topic", func(c *Config) { c.Downlink.Topic = "" }, true},
		{"unknown encoding", func(c *Config) { c.Downlink.WS558Encoding = "middle_out" }, true},
		{"msb first without fixed topic", func(c *Config) { c.Downlink.WS558Encoding = EncodingMSBFirst }, true},
		{"fixed topic with placeholder", func(c *Config) { c.Downlink.FixedTopic = "downlink/{device_eui}" }, true},
		{"topic without placeholder", func(c *Config) { c.Downlink.Topic = "downlink/all" }, true},
		{"topic with single-level wildcard", func(c *Config) { c.Downlink.Topic = "downlink/+/{device_eui}" }, true},
		{"topic with multi-level wildcard", func(c *Config) { c.Downlink.Topic = "downlink/{device_eui}/#" }, true},
		{"topic with NUL", func(c *Config) { c.Downlink.Topic = "downlink/\x00/{device_eui}" }, true},
		{"fixed topic with wildcard", func(c *Config) { c.Downlink.FixedTopic = "downlink/#" }, true},
		{"fixed topic with NUL", func(c *Config) { c.Downlink.FixedTopic = "downlink/\x00" }, true},
		{"write timeout covers broker round trip", func(c *Config) {
			c.MQTT.ConnectTimeout = 20
			c.MQTT.PublishTimeout = 10
			c.API.Timeouts.Write = 30
		}, false},
		{"write timeout shorter than broker round trip", func(c *Config) {
			c.MQTT.ConnectTimeout = 60
			c.MQTT.PublishTimeout = 10
			c.API.Timeouts.Write = 69
		}, true},
		{"api port high", func(c *Config) { c.API.Port = 70000 }, true},
		{"JWT secret too short", func(c *Config) { c.Security.JWT.Secret = "short" }, true},
		{"metrics path relative", func(c *Config) { c.Metrics.Path = "metrics" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		MQTT: MQTTConfig{ConnectTimeout: 60, PublishTimeout: 5},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.MQTT.GetConnectTimeout().Seconds(); got != 60 {
		t.Errorf("GetConnectTimeout() = %v, want 60", got)
	}
	if got := cfg.MQTT.GetPublishTimeout().Seconds(); got != 5 {
		t.Errorf("GetPublishTimeout() = %v, want 5", got)
	}
	if got := cfg.API.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.API.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.API.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("DOWNLINK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("DOWNLINK_MQTT_PORT", "8883")
	t.Setenv("DOWNLINK_MQTT_TLS", "true")
	t.Setenv("DOWNLINK_MQTT_USERNAME", "testuser")
	t.Setenv("DOWNLINK_MQTT_PASSWORD", "testpass")
	t.Setenv("DOWNLINK_DOWNLINK_TOPIC", "lora/{device_eui}/down")
	t.Setenv("DOWNLINK_DOWNLINK_FIXED_TOPIC", "lora/panel/down")
	t.Setenv("DOWNLINK_API_HOST", "192.168.1.1")
	t.Setenv("DOWNLINK_API_PORT", "8081")
	t.Setenv("DOWNLINK_JWT_SECRET", "jwt-secret")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = false, want true")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.Downlink.Topic != "lora/{device_eui}/down" {
		t.Errorf("Downlink.Topic = %q", cfg.Downlink.Topic)
	}
	if cfg.Downlink.FixedTopic != "lora/panel/down" {
		t.Errorf("Downlink.FixedTopic = %q", cfg.Downlink.FixedTopic)
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 8081 {
		t.Errorf("API.Port = %d, want 8081", cfg.API.Port)
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("Default MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.ConnectTimeout != 60 {
		t.Errorf("Default MQTT.ConnectTimeout = %d, want 60", cfg.MQTT.ConnectTimeout)
	}
	if cfg.Downlink.FPort != 85 {
		t.Errorf("Default Downlink.FPort = %d, want 85", cfg.Downlink.FPort)
	}
	if cfg.Downlink.Topic != "downlink/{device_eui}" {
		t.Errorf("Default Downlink.Topic = %q, want downlink/{device_eui}", cfg.Downlink.Topic)
	}
	if cfg.API.Port != 4000 {
		t.Errorf("Default API.Port = %d, want 4000", cfg.API.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}
