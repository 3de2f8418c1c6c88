package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/vibrant/internal/display"
	"github.com/nerrad567/vibrant/internal/infrastructure/config"
	"github.com/nerrad567/vibrant/internal/infrastructure/logging"
	"github.com/nerrad567/vibrant/internal/saturation"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// ChannelSaturationChanged carries every applied saturation.Change.
// Appending ":<output>" narrows a subscription to one output, for example
// "saturation.changed:DP-1".
const ChannelSaturationChanged = "saturation.changed"

const (
	channelOutputSep = ":"

	wsSendBufferSize = 64
	wsIOBufferSize   = 1024

	// outputLookupTimeout bounds the display query made when a client
	// subscribes to a single output.
	outputLookupTimeout = 2 * time.Second
)

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// subscription is a parsed channel name. An empty output matches every output.
type subscription struct {
	output string
}

// parseChannel validates a channel name.
func parseChannel(channel string) (subscription, error) {
	base, output, scoped := strings.Cut(channel, channelOutputSep)
	if base != ChannelSaturationChanged {
		return subscription{}, fmt.Errorf("unknown channel %q", channel)
	}
	if scoped && output == "" {
		return subscription{}, fmt.Errorf("channel %q names no output", channel)
	}
	return subscription{output: output}, nil
}

// Hub tracks WebSocket clients and fans saturation changes out to them.
type Hub struct {
	logger *logging.Logger

	// exists reports whether an output can be subscribed to. Nil accepts
	// any name.
	exists func(ctx context.Context, output string) bool

	mu      sync.RWMutex
	clients map[*WSClient]struct{}

	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewHub creates a hub. exists may be nil.
func NewHub(logger *logging.Logger, exists func(ctx context.Context, output string) bool) *Hub {
	return &Hub{
		logger:  logger,
		exists:  exists,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

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

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client. The send channel is closed only by whoever
// removes the client from the map, so shutdown and disconnect can race.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// PublishChange sends a change to every client subscribed to all outputs or
// to the changed one. A client whose buffer is full misses the event.
func (h *Hub) PublishChange(c saturation.Change) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: ChannelSaturationChanged,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   c,
	})
	if err != nil {
		h.logger.Error("encoding saturation event", "output", c.Output, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.wants(c.Output) {
			continue
		}
		if client.trySend(data) {
			h.delivered.Add(1)
		} else {
			h.dropped.Add(1)
			h.logger.Warn("websocket client too slow, event dropped", "output", c.Output)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Metrics returns client and event counters.
func (h *Hub) Metrics() WSMetrics {
	return WSMetrics{
		ConnectedClients: h.ClientCount(),
		EventsDelivered:  h.delivered.Load(),
		EventsDropped:    h.dropped.Load(),
	}
}

func (h *Hub) outputExists(output string) bool {
	if h.exists == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), outputLookupTimeout)
	defer cancel()
	return h.exists(ctx, output)
}

// outputExists reports whether the service knows an output. Transport
// failures count as existing; only a lookup miss rejects the name.
func (s *Server) outputExists(ctx context.Context, output string) bool {
	_, err := s.service.Get(ctx, output)
	return !errors.Is(err, display.ErrNotFound)
}

// WSClient is one WebSocket connection and its subscriptions.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	all     bool
	outputs map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsIOBufferSize,
	WriteBufferSize: wsIOBufferSize,
	CheckOrigin: func(_ *http.Request) bool {
		// Origins are checked by the CORS middleware.
		return true
	},
}

// handleWebSocket upgrades the connection. Clients receive nothing until
// they subscribe.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:     s.hub,
		conn:    conn,
		send:    make(chan []byte, wsSendBufferSize),
		outputs: make(map[string]struct{}),
	}
	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

func (c *WSClient) wants(output string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.all {
		return true
	}
	_, ok := c.outputs[output]
	return ok
}

func (c *WSClient) apply(subs []subscription, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range subs {
		switch {
		case sub.output == "":
			c.all = on
		case on:
			c.outputs[sub.output] = struct{}{}
		default:
			delete(c.outputs, sub.output)
		}
	}
}

func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	}

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline on connection setup
	extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		extend("")
		c.handleMessage(data)
	}
}

func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	write := func(messageType int, data []byte) error {
		//nolint:errcheck // Write error is returned below
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(messageType, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close frame
				write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscription(msg, true)
	case WSTypeUnsubscribe:
		c.handleSubscription(msg, false)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleSubscription applies a subscribe or unsubscribe request. The request
// is rejected as a whole if any channel is invalid.
func (c *WSClient) handleSubscription(msg WSMessage, on bool) {
	channels, err := decodeChannels(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, err.Error())
		return
	}

	subs := make([]subscription, 0, len(channels))
	for _, ch := range channels {
		sub, err := parseChannel(ch)
		if err != nil {
			c.sendError(msg.ID, err.Error())
			return
		}
		if on && sub.output != "" && !c.hub.outputExists(sub.output) {
			c.sendError(msg.ID, fmt.Sprintf("unknown output %q", sub.output))
			return
		}
		subs = append(subs, sub)
	}
	c.apply(subs, on)

	key := "unsubscribed"
	if on {
		key = "subscribed"
	}
	c.hub.logger.Debug("websocket subscriptions changed", key, channels)
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{key: channels})
}

func decodeChannels(payload any) ([]string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New("invalid payload")
	}
	var p WSSubscribePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.New("invalid subscription payload")
	}
	if len(p.Channels) == 0 {
		return nil, errors.New("no channels given")
	}
	return p.Channels, nil
}

// trySend queues data without blocking. It reports false when the buffer is
// full or the client has already been disconnected.
func (c *WSClient) trySend(data []byte) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
