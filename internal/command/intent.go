package command

import "strings"

// Switch state values accepted on the wire.
const (
	StateOff = 0
	StateOn  = 1
)

// topicMetachars are rejected in device EUIs because the EUI is substituted
// into an MQTT topic.
const topicMetachars = "/+#"

// Intent is a request to drive one device. Switch panels use SwitchStates,
// button panels use ButtonID; the other field is ignored.
type Intent struct {
	Model        Model
	DeviceEUI    string
	SwitchStates []int
	ButtonID     int
}

// Validate checks the intent against its model's shape.
//
// Returns:
//   - error: a *ValidationError (errors.Is ErrInvalidIntent) describing the
//     first problem found, or ErrUnknownModel for an unsupported model
func (i Intent) Validate() error {
	switch i.Model {
	case ModelWS503, ModelWS558, ModelWS558Fixed, ModelWS156:
	default:
		return ErrUnknownModel
	}

	if err := ValidateDeviceEUI(i.DeviceEUI, i.Model.EUIAddressed()); err != nil {
		return err
	}

	if i.Model.IsSwitchPanel() {
		return validateStates(i.SwitchStates, i.Model.Arity())
	}
	return validateButton(i.ButtonID)
}

// ValidateDeviceEUI checks an EUI before it is substituted into a topic.
// An empty EUI passes unless required.
func ValidateDeviceEUI(eui string, required bool) error {
	if strings.TrimSpace(eui) == "" {
		if required {
			return invalid("device_eui", "Device EUI is required.")
		}
		return nil
	}
	if strings.ContainsAny(eui, topicMetachars) || strings.ContainsAny(eui, " \t\r\n") {
		return invalid("device_eui", "Device EUI must not contain whitespace or MQTT wildcards.")
	}
	return nil
}

func validateStates(states []int, arity int) error {
	if len(states) != arity {
		return invalid("switch_states", "Invalid switch states. Must provide exactly %d states.", arity)
	}
	for idx, s := range states {
		if s != StateOff && s != StateOn {
			return invalid("switch_states", "Invalid switch state %d at position %d. Must be 0 or 1.", s, idx)
		}
	}
	return nil
}

func validateButton(id int) error {
	if id < MinButtonID || id > MaxButtonID {
		return invalid("button_id", "Invalid button ID. Must be between %d and %d.", MinButtonID, MaxButtonID)
	}
	return nil
}
