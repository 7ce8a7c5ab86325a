package downlink

import (
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/mqtt"
)

// Session is an open broker connection. mqtt.Session satisfies it.
type Session interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Close() error
}

// Dialer opens sessions. Each call must return a fresh session.
type Dialer interface {
	Dial() (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func() (Session, error)

// Dial calls f.
func (f DialerFunc) Dial() (Session, error) {
	return f()
}

// MQTTDialer returns a Dialer that opens paho-backed sessions to the broker
// described by cfg.
func MQTTDialer(cfg config.MQTTConfig) Dialer {
	return DialerFunc(func() (Session, error) {
		s, err := mqtt.Dial(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
