package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/messaging"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // token in the query string authenticates the socket
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Authenticator turns a bearer token into a caller.
type Authenticator func(token string) (messaging.Caller, error)

// AccessResolver decides what a caller may read inside an event.
type AccessResolver interface {
	AccessForEvent(ctx context.Context, eventID uuid.UUID, caller messaging.Caller) (messaging.Access, error)
}

// Client represents a single WebSocket connection to an event room.
type Client struct {
	ID      string
	EventID uuid.UUID
	UserID  uuid.UUID
	Access  messaging.Access
	hub     *Hub
	conn    *websocket.Conn
	send    chan WSMessage
	logger  *zap.Logger
}

// NewClient builds a client with a buffered outbox; conn may be nil in tests.
func NewClient(hub *Hub, conn *websocket.Conn, eventID uuid.UUID, access messaging.Access, logger *zap.Logger) *Client {
	return &Client{
		ID:      uuid.New().String(),
		EventID: eventID,
		UserID:  access.UserID,
		Access:  access,
		hub:     hub,
		conn:    conn,
		send:    make(chan WSMessage, 256),
		logger:  logger,
	}
}

// ServeWs handles GET /ws?event_id=&token=: authenticate, check event membership, upgrade and run the client loop.
func ServeWs(hub *Hub, authenticate Authenticator, resolver AccessResolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		eventIDStr := c.Query("event_id")
		token := c.Query("token")
		if eventIDStr == "" || token == "" {
			response.BadRequest(c, "event_id and token required")
			return
		}
		eventID, err := uuid.Parse(eventIDStr)
		if err != nil {
			response.BadRequest(c, "invalid event_id")
			return
		}
		caller, err := authenticate(token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		access, err := resolver.AccessForEvent(c.Request.Context(), eventID, caller)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				response.NotFound(c, "event not found")
				return
			}
			logger.Error("resolve event access failed", zap.Error(err))
			response.Internal(c, "failed to resolve access")
			return
		}
		if !access.Member() {
			response.Forbidden(c, "not a participant of this event")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(hub, conn, eventID, access, logger)
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case EventPresence:
			c.hub.sendTo(c, EventPresence, map[string]int{"count": c.hub.Presence(c.EventID)})
		default:
			// messages are posted over HTTP; anything else is ignored
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
