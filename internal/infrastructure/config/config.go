package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DeviceEUIPlaceholder is substituted with the device EUI in topic templates.
const DeviceEUIPlaceholder = "{device_eui}"

// WS558 bit-order encodings selectable per deployment.
const (
	EncodingLSBFirst = "lsb_first"
	EncodingMSBFirst = "msb_first"
)

// LoRaWAN application port range usable for downlinks.
const (
	minFPort = 1
	maxFPort = 223
)

// minJWTSecretLength is the shortest accepted HS256 signing secret.
const minJWTSecretLength = 32

// Config is the root configuration structure for the downlink service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Downlink  DownlinkConfig  `yaml:"downlink"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`

	// ConnectTimeout bounds the CONNECT/CONNACK exchange, in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// PublishTimeout bounds the wait for the broker's publish acknowledgment, in seconds.
	PublishTimeout int `yaml:"publish_timeout"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`

	// ClientID is a prefix; each session appends a unique suffix so
	// concurrent requests never share a broker session.
	ClientID string `yaml:"client_id"`

	// CAFile optionally pins the broker's certificate authority (PEM).
	CAFile string `yaml:"ca_file"`

	// InsecureSkipVerify disables broker certificate verification. Lab use only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DownlinkConfig describes the envelope and topic contract with the
// LoRaWAN network server.
type DownlinkConfig struct {
	Confirmed bool `yaml:"confirmed"`
	FPort     int  `yaml:"fport"`

	// Topic is the EUI-addressed topic template, e.g. "downlink/{device_eui}".
	Topic string `yaml:"topic"`

	// FixedTopic is used by the single-device (fixed-topic) deployment.
	FixedTopic string `yaml:"fixed_topic"`

	// WS558Encoding selects the 8-gang bit order: lsb_first or msb_first.
	WS558Encoding string `yaml:"ws558_encoding"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the downlink event feed.
type WebSocketConfig struct {
	Enabled        bool `yaml:"enabled"`
	MaxMessageSize int  `yaml:"max_message_size"`
	PingInterval   int  `yaml:"ping_interval"`
	PongTimeout    int  `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings. An empty secret leaves the
// control routes unauthenticated.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // minutes, used when issuing tokens
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DOWNLINK_SECTION_KEY
// For example: DOWNLINK_MQTT_HOST, DOWNLINK_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults. The broker defaults match
// a local Mosquitto and the envelope defaults match the network server's
// downlink contract (confirmed, fPort 85).
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "downlink",
			},
			QoS:            1,
			ConnectTimeout: 60,
			PublishTimeout: 10,
		},
		Downlink: DownlinkConfig{
			Confirmed:     true,
			FPort:         85,
			Topic:         "downlink/" + DeviceEUIPlaceholder,
			WS558Encoding: EncodingLSBFirst,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 4000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 90,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:        true,
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 60,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DOWNLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DOWNLINK_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOWNLINK_MQTT_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("DOWNLINK_MQTT_TLS"); v != "" {
		tls, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DOWNLINK_MQTT_TLS: %w", err)
		}
		cfg.MQTT.Broker.TLS = tls
	}
	if v := os.Getenv("DOWNLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DOWNLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("DOWNLINK_DOWNLINK_TOPIC"); v != "" {
		cfg.Downlink.Topic = v
	}
	if v := os.Getenv("DOWNLINK_DOWNLINK_FIXED_TOPIC"); v != "" {
		cfg.Downlink.FixedTopic = v
	}

	if v := os.Getenv("DOWNLINK_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("DOWNLINK_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOWNLINK_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	if v := os.Getenv("DOWNLINK_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.ConnectTimeout <= 0 {
		errs = append(errs, "mqtt.connect_timeout must be positive")
	}
	if c.MQTT.PublishTimeout <= 0 {
		errs = append(errs, "mqtt.publish_timeout must be positive")
	}

	// Downlink validation
	if c.Downlink.FPort < minFPort || c.Downlink.FPort > maxFPort {
		errs = append(errs, fmt.Sprintf("downlink.fport must be between %d and %d", minFPort, maxFPort))
	}
	switch {
	case c.Downlink.Topic == "":
		errs = append(errs, "downlink.topic is required")
	case !strings.Contains(c.Downlink.Topic, DeviceEUIPlaceholder):
		errs = append(errs, "downlink.topic must contain "+DeviceEUIPlaceholder)
	}
	if hasTopicWildcard(c.Downlink.Topic) {
		errs = append(errs, "downlink.topic must not contain +, # or NUL")
	}
	if hasTopicWildcard(c.Downlink.FixedTopic) {
		errs = append(errs, "downlink.fixed_topic must not contain +, # or NUL")
	}
	switch c.Downlink.WS558Encoding {
	case EncodingLSBFirst:
	case EncodingMSBFirst:
		if c.Downlink.FixedTopic == "" {
			errs = append(errs, "downlink.fixed_topic is required when downlink.ws558_encoding is msb_first")
		}
	default:
		errs = append(errs, "downlink.ws558_encoding must be lsb_first or msb_first")
	}
	if strings.Contains(c.Downlink.FixedTopic, DeviceEUIPlaceholder) {
		errs = append(errs, "downlink.fixed_topic must not contain "+DeviceEUIPlaceholder)
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	// A request holds its response open for a full connect and publish.
	if c.API.Timeouts.Write < c.MQTT.ConnectTimeout+c.MQTT.PublishTimeout {
		errs = append(errs, "api.timeouts.write must be at least mqtt.connect_timeout + mqtt.publish_timeout")
	}

	// JWT secret is optional; when set it must be strong enough for HS256.
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// hasTopicWildcard reports whether topic holds characters that are illegal
// in an MQTT publish topic.
func hasTopicWildcard(topic string) bool {
	return strings.ContainsAny(topic, "+#\x00")
}

// GetConnectTimeout returns the MQTT connect timeout as a Duration.
func (c MQTTConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// GetPublishTimeout returns the MQTT publish timeout as a Duration.
func (c MQTTConfig) GetPublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
