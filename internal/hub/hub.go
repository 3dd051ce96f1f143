// Package hub fans queue and admin events out to connected realtime clients.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/models"

	"go.uber.org/zap"
)

type Client struct {
	ID     string
	Send   chan []byte
	topics map[string]bool
	// adminSession is the session that authorized the admin topic.
	adminSession string
}

func NewClient(id string, buffer int) *Client {
	return &Client{ID: id, Send: make(chan []byte, buffer), topics: make(map[string]bool)}
}

type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	now     func() time.Time
	logger  *zap.Logger
}

type SubscribeMessage struct {
	Action    string `json:"action"`
	Topic     string `json:"topic"`
	SessionID string `json:"session_id"`
}

func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.topics[topic] = true
}

// SubscribeAdmin subscribes client to the admin topic on behalf of an
// already authorized session. RevalidateAdmins re-checks that session later.
func (h *Hub) SubscribeAdmin(client *Client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.topics[models.TopicAdmin] = true
	client.adminSession = sessionID
}

func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(client.topics, topic)
	if topic == models.TopicAdmin {
		client.adminSession = ""
	}
}

// RevalidateAdmins runs authorize for every admin subscription and drops the
// ones it rejects, notifying the client. It returns how many were dropped.
func (h *Hub) RevalidateAdmins(ctx context.Context, authorize func(ctx context.Context, sessionID string) error) int {
	type grant struct {
		client    *Client
		sessionID string
	}
	h.mu.RLock()
	grants := make([]grant, 0)
	for _, client := range h.clients {
		if client.topics[models.TopicAdmin] {
			grants = append(grants, grant{client: client, sessionID: client.adminSession})
		}
	}
	h.mu.RUnlock()

	revoked, err := h.envelope(models.EventAdminRevoked, map[string]string{"topic": models.TopicAdmin})
	if err != nil {
		return 0
	}
	dropped := 0
	for _, g := range grants {
		authErr := authorize(ctx, g.sessionID)
		if authErr == nil {
			continue
		}
		if ctx.Err() != nil {
			return dropped
		}
		h.logger.Info("admin subscription revoked", zap.String("client_id", g.client.ID), zap.Error(authErr))

		h.mu.Lock()
		_, registered := h.clients[g.client.ID]
		if registered && g.client.topics[models.TopicAdmin] && g.client.adminSession == g.sessionID {
			delete(g.client.topics, models.TopicAdmin)
			g.client.adminSession = ""
			dropped++
			select {
			case g.client.Send <- revoked:
			default:
			}
		}
		h.mu.Unlock()
	}
	return dropped
}

// RunRevalidation calls RevalidateAdmins every interval until ctx is done.
func (h *Hub) RunRevalidation(ctx context.Context, interval time.Duration, authorize func(ctx context.Context, sessionID string) error) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := h.RevalidateAdmins(ctx, authorize); dropped > 0 {
				h.logger.Debug("admin subscriptions revalidated", zap.Int("dropped", dropped))
			}
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish wraps payload in an envelope and broadcasts it to topic.
func (h *Hub) Publish(topic, eventType string, payload interface{}) {
	msg, err := h.envelope(eventType, payload)
	if err != nil {
		h.logger.Error("encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.Broadcast(topic, msg)
}

func (h *Hub) envelope(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw, CreatedAt: h.now()})
}

// Broadcast never blocks: a client whose buffer is full misses the message.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.topics[topic] {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("drop message for slow client", zap.String("client_id", client.ID), zap.String("topic", topic))
		}
	}
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	if msg.Topic != models.TopicQueue && msg.Topic != models.TopicAdmin {
		return SubscribeMessage{}, false
	}
	return msg, true
}
