package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
)

// Message types exchanged with dashboard clients.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// ChannelDeviceStateChanged carries the fresh Device after every mutation.
	ChannelDeviceStateChanged = "device.state_changed"
)

const (
	// clientQueueLen bounds the frames buffered for one slow client.
	clientQueueLen = 256

	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// WSMessage is the JSON frame used in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload lists the channels of a subscribe or unsubscribe request.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// encodeFrame stamps and marshals one outbound frame.
func encodeFrame(msg WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(msg)
}

// Hub tracks connected dashboards and fans device changes out to them.
// It implements device.ChangeNotifier.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewHub returns an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger.With("component", "websocket"),
		clients: make(map[*WSClient]struct{}),
	}
}

// Run waits for ctx to end and then drops every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.shutdown()
	}
	if len(clients) > 0 {
		h.logger.Debug("websocket clients dropped on shutdown", "clients", len(clients))
	}
}

// Register starts delivering broadcasts to c.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister stops delivery to c and releases its writer. Repeated calls
// are harmless.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, known := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !known {
		return
	}
	c.shutdown()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// ClientCount reports how many dashboards are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DeviceChanged broadcasts d on ChannelDeviceStateChanged.
func (h *Hub) DeviceChanged(_ context.Context, d device.Device) {
	h.Broadcast(ChannelDeviceStateChanged, d)
}

// Broadcast queues an event frame for every client subscribed to channel.
// Clients whose queue is full miss the frame.
func (h *Hub) Broadcast(channel string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: WSTypeEvent, EventType: channel, Payload: payload})
	if err != nil {
		h.logger.Error("encoding websocket event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.isSubscribed(channel) && c.enqueue(frame) {
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("websocket event delivered", "channel", channel, "recipients", delivered)
	}
}

// WSClient is one dashboard connection.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu            sync.Mutex
	subscriptions map[string]struct{}
	closed        bool
}

// enqueue hands frame to the writer without blocking. It reports false
// when the client is gone or its queue is full.
func (c *WSClient) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the send queue once and the socket.
func (c *WSClient) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// reply sends a typed frame correlated to a request id.
func (c *WSClient) reply(id, msgType string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: msgType, ID: id, Payload: payload})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

func (c *WSClient) replyError(id, message string) {
	c.reply(id, WSTypeError, map[string]string{"message": message})
}

// Origins are policed by the CORS middleware; the socket itself accepts any.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWebSocket upgrades GET /api/ws. The dashboard has no login, so any
// client may connect.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, clientQueueLen),
		subscriptions: make(map[string]struct{}),
	}
	s.hub.Register(c)

	ka := newKeepalive(s.wsCfg)
	go c.writeLoop(ka)
	go c.readLoop(ka, int64(s.wsCfg.MaxMessageSize))
}

// keepalive holds the ping cadence and how long a silent peer may live.
type keepalive struct {
	ping time.Duration
	wait time.Duration
}

func newKeepalive(cfg config.WebSocketConfig) keepalive {
	ka := keepalive{
		ping: time.Duration(cfg.PingInterval) * time.Second,
		wait: time.Duration(cfg.PongTimeout) * time.Second,
	}
	if ka.ping <= 0 {
		ka.ping = defaultPingInterval
	}
	if ka.wait <= 0 {
		ka.wait = defaultPongTimeout
	}
	return ka
}

func (ka keepalive) readDeadline() time.Time {
	return time.Now().Add(ka.ping + ka.wait)
}

// readLoop consumes client frames until the socket fails, then unregisters.
func (c *WSClient) readLoop(ka keepalive, limit int64) {
	defer c.hub.Unregister(c)

	if limit > 0 {
		c.conn.SetReadLimit(limit)
	}
	//nolint:errcheck // a failed deadline surfaces on the next read
	c.conn.SetReadDeadline(ka.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(ka.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings, so any frame
		// counts as a sign of life.
		//nolint:errcheck // a failed deadline surfaces on the next read
		c.conn.SetReadDeadline(ka.readDeadline())
		c.dispatch(data)
	}
}

// writeLoop drains the send queue and pings on the keepalive cadence.
func (c *WSClient) writeLoop(ka keepalive) {
	ticker := time.NewTicker(ka.ping)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		var (
			kind    = websocket.PingMessage
			payload []byte
		)
		select {
		case frame, ok := <-c.send:
			if !ok {
				//nolint:errcheck // peer may already be gone
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, payload = websocket.TextMessage, frame
		case <-ticker.C:
		}

		//nolint:errcheck // a failed deadline surfaces on the write
		c.conn.SetWriteDeadline(time.Now().Add(ka.wait))
		if err := c.conn.WriteMessage(kind, payload); err != nil {
			return
		}
	}
}

// dispatch answers one client frame.
func (c *WSClient) dispatch(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.replyError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.updateSubscriptions(msg)
	default:
		c.replyError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// updateSubscriptions adds or removes the requested channels and
// acknowledges with the list it applied.
func (c *WSClient) updateSubscriptions(msg WSMessage) {
	// Payload arrives as a generic map; round-trip it into the typed form.
	raw, err := json.Marshal(msg.Payload)
	var req WSSubscribePayload
	if err == nil {
		err = json.Unmarshal(raw, &req)
	}
	if err != nil {
		c.replyError(msg.ID, "invalid "+msg.Type+" payload")
		return
	}

	subscribe := msg.Type == WSTypeSubscribe
	c.mu.Lock()
	for _, ch := range req.Channels {
		if subscribe {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
	}
	c.mu.Unlock()

	ack := "unsubscribed"
	if subscribe {
		ack = "subscribed"
		c.hub.logger.Debug("websocket client subscribed", "channels", req.Channels)
	}
	c.reply(msg.ID, WSTypeResponse, map[string]any{ack: req.Channels})
}
