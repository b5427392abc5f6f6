package localapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"taskdeck/internal/gateway"
)

// wsMessage is the frame envelope on the /ws socket. Clients send
// type "req" frames; the hub answers with type "res" carrying either a
// payload or an error, and broadcasts type "event" frames to everyone.
type wsMessage struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload"`
	Error   *wsError        `json:"error,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func mustRaw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

type chatRouteFunc func(ctx context.Context, message, conversationID string) (gateway.SendMessageResponse, error)

type WSHub struct {
	route   chatRouteFunc
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	seq     atomic.Uint64
}

func NewWSHub(route chatRouteFunc) *WSHub {
	return &WSHub{route: route, clients: map[*websocket.Conn]struct{}{}}
}

func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return
		}
		h.handleFrame(ctx, conn, raw)
	}
}

func (h *WSHub) handleFrame(ctx context.Context, conn *websocket.Conn, raw []byte) {
	var req wsMessage
	if err := json.Unmarshal(raw, &req); err != nil {
		h.reply(ctx, conn, wsMessage{
			ID:    req.ID,
			Type:  "res",
			Error: &wsError{Code: "BAD_FRAME", Message: "invalid frame"},
		})
		return
	}
	if req.Type != "req" {
		return
	}

	switch req.Op {
	case "chat.send":
		var body struct {
			Message        string `json:"message"`
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal(req.Payload, &body); err != nil || body.Message == "" {
			h.reply(ctx, conn, wsMessage{
				ID:    req.ID,
				Type:  "res",
				Op:    req.Op,
				Error: &wsError{Code: "BAD_REQUEST", Message: "message is required"},
			})
			return
		}
		resp, err := h.route(ctx, body.Message, body.ConversationID)
		if err != nil {
			h.reply(ctx, conn, wsMessage{
				ID:    req.ID,
				Type:  "res",
				Op:    req.Op,
				Error: &wsError{Code: "CHAT_FAILED", Message: err.Error()},
			})
			return
		}
		h.reply(ctx, conn, wsMessage{ID: req.ID, Type: "res", Op: req.Op, Payload: mustRaw(resp)})
	default:
		h.reply(ctx, conn, wsMessage{
			ID:    req.ID,
			Type:  "res",
			Op:    req.Op,
			Error: &wsError{Code: "UNKNOWN_OP", Message: "unknown op: " + req.Op},
		})
	}
}

func (h *WSHub) reply(ctx context.Context, conn *websocket.Conn, msg wsMessage) {
	out, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, out)
}

// Publish fans an event out to every connected client. Writes are bounded so
// one stalled client cannot block the rest.
func (h *WSHub) Publish(topic, conversationID string, payload map[string]any) {
	outPayload := map[string]any{}
	if conversationID != "" {
		outPayload["conversation_id"] = conversationID
	}
	for k, v := range payload {
		outPayload[k] = v
	}

	evt := wsMessage{
		ID:      fmt.Sprintf("evt_%d", h.seq.Add(1)),
		Type:    "event",
		Op:      topic,
		Payload: mustRaw(outPayload),
	}
	msg, err := json.Marshal(evt)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		_ = c.Write(ctx, websocket.MessageText, msg)
		cancel()
	}
}
