package localapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"taskdeck/internal/authstate"
	"taskdeck/internal/gateway"
	"taskdeck/internal/taskstate"
	"taskdeck/internal/transcript"
)

// readyProbeTimeout bounds the backend health call behind /readyz. It is the
// only deadline enforced anywhere on the client's backend traffic.
const readyProbeTimeout = 5 * time.Second

type AuthMachine interface {
	Login(ctx context.Context, email, password string) error
	Signup(ctx context.Context, email, password string) error
	Logout()
	Snapshot() authstate.State
}

type TaskMachine interface {
	Fetch(ctx context.Context) error
	Create(ctx context.Context, title, description string) (gateway.Task, error)
	Update(ctx context.Context, taskID int64, title, description string) (gateway.Task, error)
	Delete(ctx context.Context, taskID int64) error
	ToggleCompletion(ctx context.Context, taskID int64) (gateway.Task, error)
	SetFilter(f taskstate.Filter)
	Filtered() []gateway.Task
	Snapshot() taskstate.State
}

type ChatRouter interface {
	Send(ctx context.Context, userID int64, message, conversationID string) (gateway.SendMessageResponse, error)
	History(userID int64, conversationID string) ([]transcript.Message, error)
}

type BackendProbe interface {
	Health(ctx context.Context, timeout time.Duration) (gateway.HealthStatus, error)
}

type ConversationReader interface {
	GetConversation(ctx context.Context, userID int64, conversationID string) (gateway.Conversation, error)
	ListConversations(ctx context.Context, userID int64, limit, offset int) (gateway.ConversationPage, error)
}

type Deps struct {
	Auth          AuthMachine
	Tasks         TaskMachine
	Chat          ChatRouter
	Probe         BackendProbe
	Conversations ConversationReader
	Log           *slog.Logger
}

// Server is the local HTTP surface a browser UI attaches to. Handlers are
// glue over the state machines and the chat router; no task or auth logic
// lives here.
type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *WSHub
}

func NewServer(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.hub = NewWSHub(s.routeChatMessage)
	s.registerAuthRoutes()
	s.registerTaskRoutes()
	s.registerChatRoutes()
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/readyz", s.handleReady)
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// handleHealth is the liveness probe target: static payload, no upstream
// dependency.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]any{
		"status":    "healthy",
		"service":   "taskdeck",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady reports 200 only when the backend's health endpoint answers
// within the probe deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	health, err := s.deps.Probe.Health(r.Context(), readyProbeTimeout)
	if err != nil {
		s.deps.Log.Warn("readiness probe failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":    "BACKEND_UNREACHABLE",
				"message": err.Error(),
			},
			"status":  "not_ready",
			"backend": "unreachable",
		})
		return
	}
	respondOK(w, map[string]any{
		"status":        "ready",
		"backend":       "connected",
		"backendStatus": health.Status,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// currentUserID resolves the signed-in user for handlers that need one.
func (s *Server) currentUserID() (int64, bool) {
	st := s.deps.Auth.Snapshot()
	if !st.IsAuthenticated() {
		return 0, false
	}
	return st.CurrentUser.ID, true
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, code int, errCode string, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": map[string]any{"code": errCode, "message": msg}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, out any) error {
	defer func() {
		_ = r.Body.Close()
	}()
	return json.NewDecoder(r.Body).Decode(out)
}
