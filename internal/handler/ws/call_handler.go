package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wavelink-backend/internal/domain"
	"wavelink-backend/internal/service/call"
	"wavelink-backend/pkg/constants"
	"wavelink-backend/pkg/env"
	"wavelink-backend/pkg/logger"
)

// CallGateway owns the signaling WebSocket endpoint. One connection per
// device; a user may hold several at once. Every decoded frame is handed to
// the lifecycle controller with the sender identity stamped from the
// authenticated connection, never from the payload.
type CallGateway struct {
	svc *call.Service

	maxConnections int
	semaphore      chan struct{}
}

// Client is one live WebSocket connection. It satisfies the delivery
// contract of the presence registry: Deliver never blocks, a slow consumer
// loses frames rather than stalling the signaling path.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	identity uuid.UUID

	mu     sync.Mutex
	closed bool
}

// frame is the wire shape of an inbound signaling message
type frame struct {
	Type      string          `json:"type"`
	To        uuid.UUID       `json:"to,omitempty"`
	CallID    uuid.UUID       `json:"call_id,omitempty"`
	CallType  domain.CallType `json:"call_type,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	StartedAt int64           `json:"started_at,omitempty"`
}

var callUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Native clients send no Origin header
			return true
		}
		for allowed := range allowedOrigins() {
			if origin == allowed {
				return true
			}
		}
		return false
	},
}

// allowedOrigins returns the browser origins permitted to open a signaling
// connection
func allowedOrigins() map[string]bool {
	origins := map[string]bool{
		"http://localhost:3000": true,
		"http://localhost:8080": true,
	}
	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, origin := range strings.Split(extra, ",") {
			origins[strings.TrimSpace(origin)] = true
		}
	}
	return origins
}

// NewCallGateway creates the signaling gateway
func NewCallGateway(svc *call.Service) *CallGateway {
	maxConns := env.GetInt("WS_MAX_CONNECTIONS", 1000)

	return &CallGateway{
		svc:            svc,
		maxConnections: maxConns,
		semaphore:      make(chan struct{}, maxConns),
	}
}

// ServeWS upgrades an authenticated request and runs the connection until it
// closes. The handler blocks for the connection's lifetime; the deferred
// release keeps the semaphore honest.
func (g *CallGateway) ServeWS(c *gin.Context) {
	select {
	case g.semaphore <- struct{}{}:
		defer func() { <-g.semaphore }()
	default:
		logger.Warn("WebSocket connection rejected: max connections reached",
			zap.Int("max_connections", g.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}

	identityVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	identity, ok := identityVal.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return
	}

	conn, err := callUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed",
			zap.String("user_id", identity.String()),
			zap.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		identity: identity,
	}

	g.svc.Connect(c.Request.Context(), identity, client)

	go client.writePump()
	g.readPump(client)
}

// Deliver implements the presence delivery contract. Never blocks.
func (c *Client) Deliver(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		logger.Warn("Dropping frame for slow consumer",
			zap.String("user_id", c.identity.String()))
	}
}

// closeSend stops the write pump once no more deliveries can arrive
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump consumes inbound frames until the connection drops. Its deferred
// disconnect is the guaranteed finalizer: it fires on clean close, network
// failure and malformed-stream teardown alike.
func (g *CallGateway) readPump(c *Client) {
	defer func() {
		g.svc.Disconnect(context.Background(), c)
		c.closeSend()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
		// A live pong doubles as the presence heartbeat for the Redis mirror
		g.svc.Heartbeat(context.Background(), c.identity)
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket connection closed",
					zap.String("user_id", c.identity.String()),
					zap.Error(err))
			}
			return
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			logger.Warn("Invalid signaling frame",
				zap.String("user_id", c.identity.String()),
				zap.Error(err))
			continue
		}

		g.dispatch(c, &f)
	}
}

// dispatch routes one decoded frame to the lifecycle controller. Frames with
// an unknown type or missing a callId are dropped; the protocol has no error
// replies.
func (g *CallGateway) dispatch(c *Client, f *frame) {
	if f.CallID == uuid.Nil {
		logger.Debug("Signaling frame without call_id dropped",
			zap.String("type", f.Type),
			zap.String("user_id", c.identity.String()))
		return
	}

	ctx := context.Background()

	switch f.Type {
	case call.EventInitiate:
		if f.To == uuid.Nil || !f.CallType.Valid() {
			logger.Warn("Invalid initiate frame dropped",
				zap.String("user_id", c.identity.String()),
				zap.String("call_type", string(f.CallType)))
			return
		}
		g.svc.Initiate(ctx, call.InitiateEvent{
			From:     c.identity,
			To:       f.To,
			CallID:   f.CallID,
			CallType: f.CallType,
			Offer:    f.Offer,
		})

	case call.EventAnswer:
		g.svc.Answer(ctx, call.AnswerEvent{
			From:   c.identity,
			To:     f.To,
			CallID: f.CallID,
			Answer: f.Answer,
		})

	case call.EventCandidate:
		g.svc.Candidate(ctx, call.CandidateEvent{
			From:      c.identity,
			To:        f.To,
			CallID:    f.CallID,
			Candidate: f.Candidate,
		})

	case call.EventStarted:
		startedAt := time.Now().UTC()
		if f.StartedAt > 0 {
			startedAt = time.UnixMilli(f.StartedAt).UTC()
		}
		g.svc.Started(ctx, call.StartedEvent{
			From:      c.identity,
			To:        f.To,
			CallID:    f.CallID,
			StartedAt: startedAt,
		})

	case call.EventTerminate:
		g.svc.Terminate(ctx, call.TerminateEvent{
			From:   c.identity,
			To:     f.To,
			CallID: f.CallID,
		})

	default:
		logger.Debug("Unknown signaling frame type dropped",
			zap.String("type", f.Type),
			zap.String("user_id", c.identity.String()))
	}
}

// writePump flushes queued frames and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
