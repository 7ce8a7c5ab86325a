package mqtt

import (
	"errors"
	"fmt"

	"github.com/eclipse/paho.mqtt.golang/packets"
)

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when publishing on a closed or dropped session.
	ErrNotConnected = errors.New("mqtt: session not connected")

	// ErrConnectionFailed is returned when opening a session fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic or one containing wildcards.
	ErrInvalidTopic = errors.New("mqtt: invalid publish topic")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("mqtt: operation timed out")
)

// ConnectError reports a CONNECT the broker answered with a refusal, or
// that failed before any CONNACK arrived (ReturnCode is then 0 and Err
// holds the network or TLS error).
type ConnectError struct {
	ReturnCode byte
	Err        error
}

func (e *ConnectError) Error() string {
	if e.ReturnCode != packets.Accepted {
		return fmt.Sprintf("mqtt: connection refused (return code %d: %s): %v",
			e.ReturnCode, ReturnCodeText(e.ReturnCode), e.Err)
	}
	return fmt.Sprintf("mqtt: connection failed: %v", e.Err)
}

// Unwrap exposes both ErrConnectionFailed and the underlying cause.
func (e *ConnectError) Unwrap() []error {
	return []error{ErrConnectionFailed, e.Err}
}

// ReturnCodeText describes a CONNACK return code.
func ReturnCodeText(code byte) string {
	if text, ok := packets.ConnackReturnCodes[code]; ok {
		return text
	}
	return "unknown"
}
