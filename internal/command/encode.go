package command

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Frame field constants.
const (
	// switchCommand is the first byte of every switch-control frame.
	switchCommand = 0x08

	// fieldUnused fills the byte a model does not drive.
	fieldUnused = 0xFF

	// ws503ControlEnable is bit 4 of the WS503 control byte; without it the
	// device ignores the switch bits.
	ws503ControlEnable = 0x10

	// ws503Switch1 is bit 0 of the WS503 control byte.
	ws503Switch1 = 0x01

	// ws156Channel is the WS156 "button trigger" channel byte.
	ws156Channel = 0xFF
	// ws156Type selects the button-event command.
	ws156Type = 0x34
	// ws156Mode is "short press, double press" mode.
	ws156Mode = 0x01
	// ws156Trigger is the "short press" trigger.
	ws156Trigger = 0x00

	// statesPerByte is the width of a packed switch bitmask.
	statesPerByte = 8
)

// Frame is an encoded downlink command. It is immutable; Bytes returns a copy.
type Frame struct {
	b []byte
}

// Bytes returns a copy of the raw frame bytes.
func (f Frame) Bytes() []byte {
	out := make([]byte, len(f.b))
	copy(out, f.b)
	return out
}

// Hex returns the upper-case hexadecimal form, e.g. "08FF03".
func (f Frame) Hex() string {
	return strings.ToUpper(hex.EncodeToString(f.b))
}

func (f Frame) String() string {
	return f.Hex()
}

// Encode validates the intent and produces its frame.
//
// Returns:
//   - Frame: the encoded command
//   - error: a *ValidationError for bad input, ErrUnknownModel for an
//     unsupported model
func Encode(i Intent) (Frame, error) {
	if err := i.Validate(); err != nil {
		return Frame{}, err
	}

	switch i.Model {
	case ModelWS503:
		return encodeWS503(i.SwitchStates), nil
	case ModelWS558, ModelWS558Fixed:
		return encodeWS558(i.SwitchStates, i.Model.BitOrder()), nil
	case ModelWS156:
		return encodeWS156(i.ButtonID), nil
	default:
		return Frame{}, fmt.Errorf("%w: %s", ErrUnknownModel, i.Model)
	}
}

// encodeWS503 builds 08 <b1> FF. Only switch 1 is reflected in b1; the
// device firmware this targets reads the remaining bits as "no change", so
// states 2 and 3 are accepted but not encoded.
func encodeWS503(states []int) Frame {
	b1 := byte(ws503ControlEnable)
	if states[0] == StateOn {
		b1 |= ws503Switch1
	}
	return Frame{b: []byte{switchCommand, b1, fieldUnused}}
}

// encodeWS558 builds 08 FF <b2>.
func encodeWS558(states []int, order BitOrder) Frame {
	return Frame{b: []byte{switchCommand, fieldUnused, PackStates(states, order)}}
}

// encodeWS156 builds FF 34 <id> 01 00.
func encodeWS156(buttonID int) Frame {
	return Frame{b: []byte{ws156Channel, ws156Type, byte(buttonID), ws156Mode, ws156Trigger}}
}

// PackStates packs up to eight on/off states into a bitmask.
// Non-"on" values are treated as off.
func PackStates(states []int, order BitOrder) byte {
	var b byte
	for i, s := range states {
		if i >= statesPerByte {
			break
		}
		if s != StateOn {
			continue
		}
		if order == MSBFirst {
			b |= 1 << (statesPerByte - 1 - i)
		} else {
			b |= 1 << i
		}
	}
	return b
}

// UnpackStates expands a bitmask into eight on/off states. It is the
// inverse of PackStates for the same order.
func UnpackStates(b byte, order BitOrder) []int {
	states := make([]int, statesPerByte)
	for i := range states {
		bit := i
		if order == MSBFirst {
			bit = statesPerByte - 1 - i
		}
		if b&(1<<bit) != 0 {
			states[i] = StateOn
		}
	}
	return states
}
