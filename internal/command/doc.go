// Package command encodes device intents into Milesight LoRaWAN downlink frames.
//
// Each supported device family has a fixed frame layout:
//
//	ws503        08 <b1> FF          3-gang switch, b1 = 0x10 | switch 1
//	ws558        08 FF <b2>          8-gang switch, state[0] = LSB
//	ws558-fixed  08 FF <b2>          8-gang switch, state[7] = LSB
//	ws156        FF 34 <id> 01 00    6-button scene panel, short press
//
// The two ws558 encodings differ only in bit order. Both are in service on
// deployed hardware and are kept as distinct models; the deployment selects
// one through configuration.
//
// Encoding is pure: validation happens up front and, once an Intent is
// valid, Encode cannot fail.
//
// # Usage
//
//	frame, err := command.Encode(command.Intent{
//	    Model:        command.ModelWS558,
//	    DeviceEUI:    "24e124460c123456",
//	    SwitchStates: []int{1, 1, 0, 0, 0, 0, 0, 0},
//	})
//	if err != nil {
//	    // errors.Is(err, command.ErrInvalidIntent) for bad input
//	}
//	fmt.Println(frame.Hex()) // 08FF03
package command
