package mqtt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
)

// maxTopicLength is the MQTT limit on topic name length in bytes.
const maxTopicLength = 65535

// TopicTemplate is a downlink topic that may contain the {device_eui}
// placeholder.
//
//	mqtt.TopicTemplate("downlink/{device_eui}").Expand("24e124460c123456")
//	// Returns: "downlink/24e124460c123456"
//
// A template without the placeholder is a fixed topic and expands to itself.
type TopicTemplate string

// Addressed reports whether the template routes by device EUI.
func (t TopicTemplate) Addressed() bool {
	return strings.Contains(string(t), config.DeviceEUIPlaceholder)
}

// Expand substitutes deviceEUI into the template and validates the result.
//
// Returns:
//   - string: The concrete publish topic
//   - error: ErrInvalidTopic if the template is addressed and deviceEUI is
//     empty, or if the result is not a valid publish topic
func (t TopicTemplate) Expand(deviceEUI string) (string, error) {
	if !t.Addressed() {
		topic := string(t)
		return topic, ValidatePublishTopic(topic)
	}
	if deviceEUI == "" {
		return "", fmt.Errorf("%w: template %q needs a device EUI", ErrInvalidTopic, string(t))
	}

	topic := strings.ReplaceAll(string(t), config.DeviceEUIPlaceholder, deviceEUI)
	if err := ValidatePublishTopic(topic); err != nil {
		return "", err
	}
	return topic, nil
}

// ValidatePublishTopic checks topic against the MQTT rules for PUBLISH:
// non-empty, valid UTF-8, no NUL, no wildcards, at most 65535 bytes.
func ValidatePublishTopic(topic string) error {
	switch {
	case topic == "":
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	case len(topic) > maxTopicLength:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidTopic, len(topic), maxTopicLength)
	case !utf8.ValidString(topic):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidTopic)
	case strings.ContainsRune(topic, 0):
		return fmt.Errorf("%w: contains NUL", ErrInvalidTopic)
	case strings.ContainsAny(topic, "+#"):
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidTopic, topic)
	}
	return nil
}
