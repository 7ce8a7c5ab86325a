package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
)

// Connection constants.
const (
	// protocolVersion311 selects MQTT 3.1.1 in paho.
	protocolVersion311 = 4

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12

	// clientIDSuffixLen keeps generated client IDs short; some brokers still
	// enforce the 23-byte 3.1.1 limit for the full ID.
	clientIDSuffixLen = 12
)

// buildClientOptions creates paho MQTT options for a one-shot session.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - A unique client ID derived from the configured prefix
//   - Authentication credentials (if provided)
//   - MQTT 3.1.1, clean session, no automatic reconnect or retry
//   - Connect timeout from config
//   - TLS configuration (if enabled)
func buildClientOptions(cfg config.MQTTConfig) (*pahomqtt.ClientOptions, error) {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	opts.SetClientID(sessionClientID(cfg.Broker.ClientID))
	opts.SetProtocolVersion(protocolVersion311)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// One request, one session: nothing to resume and nothing to retry.
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetConnectTimeout(cfg.GetConnectTimeout())
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		tlsConfig, err := buildTLSConfig(cfg.Broker)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts, nil
}

// buildTLSConfig returns the TLS settings for an ssl:// broker.
func buildTLSConfig(broker config.MQTTBrokerConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tlsMinVersion,
		ServerName:         broker.Host,
		InsecureSkipVerify: broker.InsecureSkipVerify, //nolint:gosec // opt-in for lab brokers with self-signed certs
	}

	if broker.CAFile != "" {
		pem, err := os.ReadFile(broker.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading broker CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("broker CA file %s contains no certificates", broker.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// sessionClientID appends a random suffix to prefix so concurrent sessions
// never collide (a duplicate client ID makes the broker drop the older one).
func sessionClientID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:clientIDSuffixLen]
	if prefix == "" {
		return suffix
	}
	return prefix + "-" + suffix
}
