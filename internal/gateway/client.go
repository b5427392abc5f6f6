package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidResponse marks a 2xx response whose body did not parse as JSON.
var ErrInvalidResponse = errors.New("invalid response format from server")

// APIError is a non-2xx backend response. Detail carries the backend's
// structured error message when one was present.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Detail) != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// SessionTokens is the slice of the session store the gateway needs: reading
// the bearer token and clearing it on authentication expiry.
type SessionTokens interface {
	Token() string
	Clear() error
}

// Client is the sole HTTP boundary to the task backend. It attaches the
// bearer token when one is stored, camelizes every response body, clears the
// session on 401 and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionTokens
	log        *slog.Logger
}

func NewClient(baseURL string, sessions SessionTokens, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		sessions:   sessions,
		log:        log,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, email, username, password string) (AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

func (c *Client) ListTasks(ctx context.Context, userID int64) ([]Task, error) {
	var out taskList
	path := fmt.Sprintf("/api/users/%d/tasks", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, userID int64, title, description string) (Task, error) {
	var out Task
	path := fmt.Sprintf("/api/users/%d/tasks", userID)
	body := map[string]string{"title": title}
	if description != "" {
		body["description"] = description
	}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return Task{}, err
	}
	return out, nil
}

// ReplaceTask sends a full-resource replace for the task.
func (c *Client) ReplaceTask(ctx context.Context, userID, taskID int64, title, description string) (Task, error) {
	var out Task
	path := fmt.Sprintf("/api/users/%d/tasks/%d", userID, taskID)
	body := map[string]string{"title": title, "description": description}
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		return Task{}, err
	}
	return out, nil
}

func (c *Client) DeleteTask(ctx context.Context, userID, taskID int64) error {
	path := fmt.Sprintf("/api/users/%d/tasks/%d", userID, taskID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) SetTaskCompletion(ctx context.Context, userID, taskID int64, completed bool) (Task, error) {
	var out Task
	path := fmt.Sprintf("/api/users/%d/tasks/%d/complete", userID, taskID)
	if err := c.do(ctx, http.MethodPatch, path, map[string]bool{"completed": completed}, &out); err != nil {
		return Task{}, err
	}
	return out, nil
}

func (c *Client) SendChat(ctx context.Context, userID int64, message, conversationID string) (SendMessageResponse, error) {
	var out SendMessageResponse
	body := map[string]string{"message": message}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/%d/chat", userID), body, &out); err != nil {
		return SendMessageResponse{}, err
	}
	return out, nil
}

func (c *Client) GetConversation(ctx context.Context, userID int64, conversationID string) (Conversation, error) {
	var out Conversation
	path := fmt.Sprintf("/api/%d/chat/%s", userID, conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return Conversation{}, err
	}
	return out, nil
}

func (c *Client) ListConversations(ctx context.Context, userID int64, limit, offset int) (ConversationPage, error) {
	var out ConversationPage
	path := fmt.Sprintf("/api/%d/chat?limit=%d&offset=%d", userID, limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ConversationPage{}, err
	}
	return out, nil
}

// Health probes the backend's health endpoint with a bounded deadline; this
// is the only call in the client that enforces a timeout.
func (c *Client) Health(ctx context.Context, timeout time.Duration) (HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return HealthStatus{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessions != nil {
		if token := c.sessions.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized {
		// The one cross-cutting side effect: expired auth clears the local
		// session. Redirection/re-login is the caller's business.
		if c.sessions != nil {
			if clearErr := c.sessions.Clear(); clearErr != nil {
				c.log.Warn("failed to clear session after 401", "error", clearErr)
			}
		}
		return &APIError{Status: res.StatusCode, Detail: errorDetail(payload, "authentication required")}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{Status: res.StatusCode, Detail: errorDetail(payload, "")}
	}

	if out == nil || res.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return ErrInvalidResponse
	}
	normalized, err := json.Marshal(CamelizeKeys(decoded))
	if err != nil {
		return fmt.Errorf("normalize response body: %w", err)
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return ErrInvalidResponse
	}
	return nil
}

// errorDetail pulls the backend's structured message out of an error payload,
// preferring FastAPI-style "detail" over "message".
func errorDetail(payload []byte, fallback string) string {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err == nil {
		if detail, ok := body["detail"].(string); ok && detail != "" {
			return detail
		}
		if msg, ok := body["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fallback
}
