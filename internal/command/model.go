package command

import (
	"fmt"
	"strings"
)

// Model identifies a device family and its frame encoding.
type Model int

// Supported device models.
const (
	// ModelWS503 is the 3-gang wall switch.
	ModelWS503 Model = iota + 1
	// ModelWS558 is the 8-gang switch addressed by device EUI, state[0] = LSB.
	ModelWS558
	// ModelWS558Fixed is the 8-gang switch on a fixed topic, state[7] = LSB.
	ModelWS558Fixed
	// ModelWS156 is the 6-button scene panel.
	ModelWS156
)

// BitOrder selects how switch states are packed into a bitmask byte.
type BitOrder int

const (
	// LSBFirst puts state[0] in bit 0.
	LSBFirst BitOrder = iota
	// MSBFirst puts state[0] in bit 7.
	MSBFirst
)

// Button id bounds for the WS156.
const (
	MinButtonID = 1
	MaxButtonID = 6
)

// AllModels returns every supported model in declaration order.
func AllModels() []Model {
	return []Model{ModelWS503, ModelWS558, ModelWS558Fixed, ModelWS156}
}

// ParseModel converts a model name ("ws503", "ws558", ...) to a Model.
func ParseModel(name string) (Model, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, m := range AllModels() {
		if m.String() == n {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// String returns the model's canonical name.
func (m Model) String() string {
	switch m {
	case ModelWS503:
		return "ws503"
	case ModelWS558:
		return "ws558"
	case ModelWS558Fixed:
		return "ws558-fixed"
	case ModelWS156:
		return "ws156"
	default:
		return fmt.Sprintf("model(%d)", int(m))
	}
}

// Arity returns the number of switch states the model expects.
// Button panels take no switch states and report 0.
func (m Model) Arity() int {
	switch m {
	case ModelWS503:
		return 3
	case ModelWS558, ModelWS558Fixed:
		return 8
	default:
		return 0
	}
}

// IsSwitchPanel reports whether the model is driven by switch states.
func (m Model) IsSwitchPanel() bool {
	return m.Arity() > 0
}

// EUIAddressed reports whether downlinks for the model are routed by device
// EUI. The fixed-topic ws558 deployment serves a single device and needs none.
func (m Model) EUIAddressed() bool {
	return m != ModelWS558Fixed
}

// BitOrder returns the switch-state packing order for 8-gang models.
func (m Model) BitOrder() BitOrder {
	if m == ModelWS558Fixed {
		return MSBFirst
	}
	return LSBFirst
}
