package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// LoRaWAN downlinks are tiny; this only guards against misuse.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message on the session and waits for the broker's
// acknowledgment (PUBACK for QoS 1, PUBCOMP for QoS 2, socket write for QoS 0).
//
// Parameters:
//   - topic: The topic to publish to (e.g., "downlink/24e124460c123456")
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message; downlinks never are
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (s *Session) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := ValidatePublishTopic(topic); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !s.IsConnected() {
		return ErrNotConnected
	}

	token := s.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(s.publishTimeout) {
		return fmt.Errorf("%w: %w after %v", ErrPublishFailed, ErrTimeout, s.publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
