package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
)

// Session is a single broker connection used for one downlink.
//
// Lifecycle:
//
//	Dial → Publish (any number of times) → Close
//
// A Session never reconnects. Close is idempotent; only the first call
// disconnects.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Session struct {
	client         pahomqtt.Client
	clientID       string
	publishTimeout time.Duration

	closeOnce sync.Once
	closed    bool
	mu        sync.RWMutex
}

// Dial opens a session to the configured broker.
//
// The TLS handshake (when cfg.Broker.TLS is set) and the credential exchange
// both complete inside the CONNECT, before Dial returns.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Session: Connected session; the caller must Close it
//   - error: *ConnectError (errors.Is ErrConnectionFailed) if the broker is
//     unreachable or refuses the connection; ErrTimeout is also matched when
//     no CONNACK arrived within cfg.ConnectTimeout
func Dial(cfg config.MQTTConfig) (*Session, error) {
	opts, err := buildClientOptions(cfg)
	if err != nil {
		return nil, &ConnectError{Err: err}
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()

	timeout := cfg.GetConnectTimeout()
	if !token.WaitTimeout(timeout) {
		// Abandon the in-flight attempt so its goroutine does not outlive us.
		client.Disconnect(0)
		return nil, &ConnectError{Err: fmt.Errorf("%w: no CONNACK after %v", ErrTimeout, timeout)}
	}
	if err := token.Error(); err != nil {
		var code byte
		if ct, ok := token.(*pahomqtt.ConnectToken); ok {
			code = ct.ReturnCode()
		}
		return nil, &ConnectError{ReturnCode: code, Err: err}
	}

	return &Session{
		client:         client,
		clientID:       opts.ClientID,
		publishTimeout: cfg.GetPublishTimeout(),
	}, nil
}

// ClientID returns the client identifier presented to the broker.
func (s *Session) ClientID() string {
	return s.clientID
}

// IsConnected reports whether the session is open and the link is up.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.client != nil && s.client.IsConnected()
}

// Close disconnects from the broker. Calling Close more than once is safe.
//
// Returns:
//   - error: always nil; disconnect failures are not actionable
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.client != nil {
			s.client.Disconnect(defaultDisconnectQuiesce)
		}
	})
	return nil
}
