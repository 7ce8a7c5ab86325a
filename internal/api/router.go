package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-downlink/internal/auth"
	"github.com/nerrad567/gray-logic-downlink/internal/command"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.StripSlashes)
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Device controllers
	r.Group(func(r chi.Router) {
		r.Use(s.requireScope(auth.ScopeControl))

		r.Post("/ws503", s.handleSwitchPanel(command.ModelWS503))
		r.Post("/ws558", s.handleSwitchPanel(s.ws558Model))
		r.Post("/ws156", s.handleButtonPanel(command.ModelWS156))
	})

	r.Get("/swagger.json", s.handleSwagger)

	if s.metricsCfg.Enabled {
		r.Handle(s.metricsCfg.Path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireScope(auth.ScopeControl))
			r.Post("/devices/{model}/command", s.handleDeviceCommand)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireScope(auth.ScopeObserve))
			r.Post("/auth/ws-ticket", s.handleWSTicket)
		})

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           s.version,
		"websocket_clients": s.hub.ClientCount(),
	})
}
