package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-downlink/internal/downlink"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/logging"
)

// Broadcast channels. ChannelAll subscribes to every downlink channel.
const (
	ChannelPublished = "downlink.published"
	ChannelFailed    = "downlink.failed"
	ChannelAll       = "downlink.*"
)

// knownChannels are the channels a client may subscribe to by name.
var knownChannels = map[string]struct{}{
	ChannelPublished: {},
	ChannelFailed:    {},
}

// DownlinkEvent is the payload of downlink.published and downlink.failed.
type DownlinkEvent struct {
	Model      string `json:"model"`
	DeviceEUI  string `json:"device_eui,omitempty"`
	Topic      string `json:"topic,omitempty"`
	CommandHex string `json:"command_hex"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Hub tracks WebSocket clients and fans events out to their subscriptions.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger.Component("ws-hub"),
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subject", client.subject, "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that removes the client from the map closes its send
// channel.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "subject", client.subject, "clients", h.ClientCount())
}

// Broadcast sends an event to all clients subscribed to channel and returns
// how many were sent it. The hub lock is released before any client lock is
// taken.
func (h *Hub) Broadcast(channel string, payload any) int {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "channel", channel, "error", err)
		return 0
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if client.isSubscribed(channel) {
			client.trySend(data)
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sent)
	}
	return sent
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// NotifyResult relays a publish outcome to WebSocket observers. It is
// registered with downlink.Publisher.SetOnResult.
func (s *Server) NotifyResult(res downlink.Result) {
	event := DownlinkEvent{
		Model:      res.Model.String(),
		DeviceEUI:  res.DeviceEUI,
		Topic:      res.Topic,
		CommandHex: res.CommandHex,
		DurationMS: res.Duration.Milliseconds(),
	}

	channel := ChannelPublished
	if res.Err != nil {
		channel = ChannelFailed
		event.Error = res.Err.Error()
	}
	s.hub.Broadcast(channel, event)
}
