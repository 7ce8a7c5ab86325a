package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-downlink/internal/command"
	"github.com/nerrad567/gray-logic-downlink/internal/downlink"
)

// successMessage is the body message of every accepted command.
const successMessage = "Command sent successfully"

// switchRequest is the body of POST /ws503/ and /ws558/.
type switchRequest struct {
	DeviceEUI    string `json:"device_eui"`
	SwitchStates []int  `json:"switch_states"`
}

// buttonRequest is the body of POST /ws156/.
type buttonRequest struct {
	DeviceEUI string `json:"device_eui"`
	ButtonID  int    `json:"button_id"`
}

// deviceCommandRequest is the body of POST /api/v1/devices/{model}/command.
// Switch panels read SwitchStates, button panels read ButtonID.
type deviceCommandRequest struct {
	DeviceEUI    string `json:"device_eui"`
	SwitchStates []int  `json:"switch_states"`
	ButtonID     int    `json:"button_id"`
}

// commandResponse is the body of a successful control request.
type commandResponse struct {
	Message    string `json:"message"`
	CommandHex string `json:"command_hex"`
}

// handleSwitchPanel serves a switch-panel model.
func (s *Server) handleSwitchPanel(model command.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req switchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}

		s.send(w, r, command.Intent{
			Model:        model,
			DeviceEUI:    req.DeviceEUI,
			SwitchStates: req.SwitchStates,
		})
	}
}

// handleButtonPanel serves a button-panel model.
func (s *Server) handleButtonPanel(model command.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req buttonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}

		s.send(w, r, command.Intent{
			Model:     model,
			DeviceEUI: req.DeviceEUI,
			ButtonID:  req.ButtonID,
		})
	}
}

// handleDeviceCommand serves any model named in the path. "ws558" follows
// the configured encoding, the same as /ws558/.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	model, err := command.ParseModel(chi.URLParam(r, "model"))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	if model == command.ModelWS558 {
		model = s.ws558Model
	}

	var req deviceCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	intent := command.Intent{Model: model, DeviceEUI: req.DeviceEUI}
	if model.IsSwitchPanel() {
		intent.SwitchStates = req.SwitchStates
	} else {
		intent.ButtonID = req.ButtonID
	}
	s.send(w, r, intent)
}

// send hands the intent to the publisher and maps the outcome to a status.
func (s *Server) send(w http.ResponseWriter, r *http.Request, intent command.Intent) {
	ack, err := s.sender.Send(intent)
	if err == nil {
		writeJSON(w, http.StatusOK, commandResponse{
			Message:    successMessage,
			CommandHex: ack.CommandHex,
		})
		return
	}

	var ve *command.ValidationError
	var te *downlink.TransportError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, ve.Message)
	case errors.As(err, &te):
		writeError(w, http.StatusInternalServerError, ErrCodeTransport, err.Error())
	default:
		s.logger.Error("command rejected by publisher",
			"model", intent.Model.String(),
			"device_eui", intent.DeviceEUI,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, err.Error())
	}
}
