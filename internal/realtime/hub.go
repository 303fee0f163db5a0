package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	EventMessage  = "message"
	EventPresence = "presence"
)

// Audience restricts delivery to clients that can read one channel. A nil audience reaches everyone in the room.
type Audience struct {
	ChannelType models.ChannelType `json:"channel_type"`
	TeamID      *uuid.UUID         `json:"team_id,omitempty"`
}

// Envelope is what travels through Redis between instances.
type Envelope struct {
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
	Audience *Audience       `json:"audience,omitempty"`
}

// Publisher publishes room events for all instances, this one included.
type Publisher interface {
	PublishEvent(ctx context.Context, eventID uuid.UUID, env Envelope) error
}

// Subscriber subscribes to an event room and invokes handler for incoming envelopes.
type Subscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(env Envelope)) (cancel func(), err error)
}

// Hub maintains event_id -> set of connections.
// With Redis configured, messages go out through pub/sub and every instance delivers them to its own clients.
type Hub struct {
	// eventID -> map[clientID]*Client
	rooms  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func() // cancel Redis subscription per event
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to an event room. Starts the Redis subscription for the room if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.EventID] == nil {
		h.rooms[c.EventID] = make(map[string]*Client)
		if h.sub != nil {
			eventID := c.EventID
			cancel, err := h.sub.SubscribeEvent(eventID, func(env Envelope) {
				h.Deliver(eventID, env)
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.Error(err), zap.String("event_id", eventID.String()))
			} else {
				h.subs[eventID] = cancel
			}
		}
	}
	h.rooms[c.EventID][c.ID] = c
	count := len(h.rooms[c.EventID])
	h.mu.Unlock()
	h.broadcastPresence(c.EventID, count)
	h.logger.Debug("client joined event", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Unregister removes a client from its room. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.rooms[c.EventID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		count = len(m)
		if count == 0 {
			delete(h.rooms, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()
	if count > 0 {
		h.broadcastPresence(c.EventID, count)
	}
	h.logger.Debug("client left event", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Deliver sends an envelope to local clients of the room that may read it.
func (h *Hub) Deliver(eventID uuid.UUID, env Envelope) {
	msg := WSMessage{Event: env.Event, Data: env.Data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[eventID] {
		if env.Audience != nil && !c.Access.CanRead(env.Audience.ChannelType, env.Audience.TeamID) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish routes an envelope through Redis so each instance delivers it once. Without Redis it is delivered locally.
func (h *Hub) Publish(ctx context.Context, eventID uuid.UUID, env Envelope) error {
	if h.pub != nil {
		return h.pub.PublishEvent(ctx, eventID, env)
	}
	h.Deliver(eventID, env)
	return nil
}

// PublishMessage fans a stored chat message out to everyone allowed to read its channel.
func (h *Hub) PublishMessage(ctx context.Context, ch *models.Channel, m *models.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return h.Publish(ctx, ch.EventID, Envelope{
		Event:    EventMessage,
		Data:     data,
		Audience: &Audience{ChannelType: ch.Type, TeamID: ch.TeamID},
	})
}

// Presence returns the number of clients connected to an event on this instance.
func (h *Hub) Presence(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

func (h *Hub) broadcastPresence(eventID uuid.UUID, count int) {
	data, _ := json.Marshal(map[string]int{"count": count})
	h.Deliver(eventID, Envelope{Event: EventPresence, Data: data})
}

// sendTo queues a message for one client.
func (h *Hub) sendTo(c *Client, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.EventID][c.ID]; !ok {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}
