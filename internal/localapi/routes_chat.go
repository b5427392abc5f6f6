package localapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"taskdeck/internal/gateway"
)

var errNoSession = errors.New("no authenticated session")

func (s *Server) registerChatRoutes() {
	s.mux.HandleFunc("/api/v1/chat/messages", s.handleChatSend)
	s.mux.HandleFunc("/api/v1/chat/conversations", s.handleConversationList)
	s.mux.HandleFunc("/api/v1/chat/conversations/", s.handleConversation)
	s.mux.HandleFunc("/api/v1/chat/transcript", s.handleTranscript)
	s.mux.HandleFunc("/api/v1/chat/transcript/", s.handleTranscript)
}

type chatForm struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var form chatForm
	if err := decodeJSON(r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid chat payload")
		return
	}
	if strings.TrimSpace(form.Message) == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "message is required")
		return
	}
	resp, err := s.routeChatMessage(r.Context(), form.Message, form.ConversationID)
	if err != nil {
		if errors.Is(err, errNoSession) {
			respondError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, "CHAT_FAILED", err.Error())
		return
	}
	respondOK(w, resp)
}

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	userID, ok := s.currentUserID()
	if !ok {
		respondError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", errNoSession.Error())
		return
	}
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	page, err := s.deps.Conversations.ListConversations(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusBadGateway, "BACKEND_ERROR", err.Error())
		return
	}
	respondOK(w, page)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	conversationID := strings.TrimPrefix(r.URL.Path, "/api/v1/chat/conversations/")
	if conversationID == "" || strings.Contains(conversationID, "/") {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "invalid conversation id")
		return
	}
	userID, ok := s.currentUserID()
	if !ok {
		respondError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", errNoSession.Error())
		return
	}
	conv, err := s.deps.Conversations.GetConversation(r.Context(), userID, conversationID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "BACKEND_ERROR", err.Error())
		return
	}
	respondOK(w, conv)
}

type transcriptEntry struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Sender         string `json:"sender"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
	Status         string `json:"status"`
}

// handleTranscript serves the locally persisted chat log. With no id in the
// path it returns the latest conversation.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	conversationID := strings.TrimPrefix(r.URL.Path, "/api/v1/chat/transcript")
	conversationID = strings.TrimPrefix(conversationID, "/")
	if strings.Contains(conversationID, "/") {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "invalid conversation id")
		return
	}
	userID, ok := s.currentUserID()
	if !ok {
		respondError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", errNoSession.Error())
		return
	}
	msgs, err := s.deps.Chat.History(userID, conversationID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TRANSCRIPT_ERROR", err.Error())
		return
	}
	entries := make([]transcriptEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, transcriptEntry{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			Sender:         m.SenderType,
			Content:        m.Content,
			Timestamp:      m.Timestamp,
			Status:         m.Status,
		})
	}
	respondOK(w, map[string]any{"messages": entries})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// routeChatMessage is the single entry point for chat traffic from both the
// HTTP route and the websocket hub. It resolves the signed-in user and hands
// the message to the command router.
func (s *Server) routeChatMessage(ctx context.Context, message, conversationID string) (gateway.SendMessageResponse, error) {
	userID, ok := s.currentUserID()
	if !ok {
		return gateway.SendMessageResponse{}, errNoSession
	}
	resp, err := s.deps.Chat.Send(ctx, userID, message, conversationID)
	if err != nil {
		return gateway.SendMessageResponse{}, err
	}
	s.hub.Publish("chat.message", resp.ConversationID, map[string]any{
		"reply":     resp.AIResponse,
		"timestamp": resp.Timestamp,
	})
	if mutatedTasks(resp.TodoActionResult) {
		// Convenience refresh so the task cache reflects chat-side
		// mutations; a failure here does not fail the chat.
		if err := s.deps.Tasks.Fetch(ctx); err != nil {
			s.deps.Log.Warn("task refresh after chat mutation failed", "error", err)
		} else {
			s.hub.Publish("tasks.updated", resp.ConversationID, map[string]any{
				"count": len(s.deps.Tasks.Filtered()),
			})
		}
	}
	return resp, nil
}

func mutatedTasks(result *gateway.TodoActionResult) bool {
	if result == nil {
		return false
	}
	switch result.Action {
	case "created", "updated", "deleted", "completed":
		return true
	}
	return false
}
