package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-downlink/internal/command"
	"github.com/nerrad567/gray-logic-downlink/internal/downlink"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Sender encodes and publishes an intent. *downlink.Publisher satisfies it.
type Sender interface {
	Send(intent command.Intent) (downlink.Ack, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Metrics  config.MetricsConfig
	Logger   *logging.Logger
	Sender   Sender

	// WS558Model selects which encoder serves /ws558/: ModelWS558 (LSB-first,
	// per-device topic) or ModelWS558Fixed (MSB-first, fixed topic).
	WS558Model command.Model

	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	secCfg     config.SecurityConfig
	metricsCfg config.MetricsConfig
	logger     *logging.Logger
	sender     Sender
	ws558Model command.Model
	version    string
	server     *http.Server
	hub        *Hub
	tickets    *ticketStore
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called. The WebSocket hub
// exists from construction so publish results can be relayed as soon as the
// publisher is wired.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing or the ws558 model is not
//     an eight-switch model
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}

	ws558 := deps.WS558Model
	if ws558 == 0 {
		ws558 = command.ModelWS558
	}
	if ws558 != command.ModelWS558 && ws558 != command.ModelWS558Fixed {
		return nil, fmt.Errorf("ws558 route cannot be served by %s", ws558)
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		metricsCfg: deps.Metrics,
		logger:     deps.Logger,
		sender:     deps.Sender,
		ws558Model: ws558,
		version:    deps.Version,
		hub:        NewHub(deps.WS, deps.Logger),
		tickets:    newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and ticket cleanup, builds the router, and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
//
// Returns:
//   - error: reserved; listener errors after startup are logged
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.tickets.cleanLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// authEnabled reports whether bearer tokens are required.
func (s *Server) authEnabled() bool {
	return s.secCfg.JWT.Secret != ""
}
