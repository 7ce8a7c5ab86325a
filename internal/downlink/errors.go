package downlink

import (
	"errors"
	"fmt"
)

// Domain errors for the downlink package.
var (
	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("downlink: transport failure")

	// ErrNoTopic is returned when no publish topic can be resolved for a
	// model, e.g. the fixed-topic deployment without a configured topic.
	ErrNoTopic = errors.New("downlink: no topic for device")
)

// Stage names the step of the publish transaction that failed.
type Stage string

// Transaction stages.
const (
	StageConnect Stage = "connect"
	StagePublish Stage = "publish"
)

// TransportError reports a failed broker interaction. Code preserves the
// broker's CONNACK return code when the broker refused the session; it is
// zero otherwise.
type TransportError struct {
	Stage Stage
	Topic string
	Code  byte
	Err   error
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("downlink %s failed (code %d) on %q: %v", e.Stage, e.Code, e.Topic, e.Err)
	}
	return fmt.Sprintf("downlink %s failed on %q: %v", e.Stage, e.Topic, e.Err)
}

// Unwrap exposes ErrTransport and the underlying cause.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
