package hub

import (
	"context"
	"net/http"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/models"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"go.uber.org/zap"
)

const clientBuffer = 16

// HandlerOptions hooks the transport into the rest of the service.
// Authorize checks the session id sent with an admin subscription; pass the
// same function to RunRevalidation so the grant lapses with the session. Board,
// when set, is sent to a client right after it subscribes to the queue topic.
type HandlerOptions struct {
	Authorize func(ctx context.Context, sessionID string) error
	Board     func(ctx context.Context) (interface{}, error)
}

// NewHandler serves the SockJS endpoint under prefix.
func (h *Hub) NewHandler(prefix string, options HandlerOptions) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		client := NewClient(uuid.NewString(), clientBuffer)
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.Unsubscribe(client, parsed.Topic)
				continue
			}
			if parsed.Topic == models.TopicAdmin {
				if options.Authorize == nil || options.Authorize(context.Background(), parsed.SessionID) != nil {
					_ = session.Close(4001, "invalid session")
					return
				}
				h.SubscribeAdmin(client, parsed.SessionID)
				continue
			}
			h.Subscribe(client, parsed.Topic)
			if parsed.Topic == models.TopicQueue && options.Board != nil {
				h.sendBoard(client, options.Board)
			}
		}
	})
}

func (h *Hub) sendBoard(client *Client, board func(ctx context.Context) (interface{}, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	payload, err := board(ctx)
	if err != nil {
		h.logger.Warn("initial board snapshot failed", zap.String("client_id", client.ID), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	msg, err := h.envelope(models.EventQueueUpdated, payload)
	if err != nil {
		return
	}
	select {
	case client.Send <- msg:
	default:
	}
}
