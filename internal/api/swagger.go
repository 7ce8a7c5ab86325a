package api

import (
	_ "embed"
	"net/http"
)

// swaggerDoc describes the device controllers and their request models.
//
//go:embed swagger.json
var swaggerDoc []byte

// handleSwagger serves the OpenAPI 2.0 document.
func (s *Server) handleSwagger(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(swaggerDoc)
}
