package downlink

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-downlink/internal/command"
)

// Envelope is the network server's downlink message.
type Envelope struct {
	Confirmed bool   `json:"confirmed"`
	FPort     int    `json:"fport"`
	Data      string `json:"data"`
}

// NewEnvelope wraps frame; Data is the standard base64 of the raw frame bytes.
func NewEnvelope(frame command.Frame, confirmed bool, fport int) Envelope {
	return Envelope{
		Confirmed: confirmed,
		FPort:     fport,
		Data:      base64.StdEncoding.EncodeToString(frame.Bytes()),
	}
}

// Marshal returns the JSON payload published to the broker.
func (e Envelope) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding downlink envelope: %w", err)
	}
	return b, nil
}
