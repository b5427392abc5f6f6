package gateway

// Wire types as seen by callers, after the gateway's key camelization. JSON
// tags are therefore camelCase even though the backend speaks snake_case.

type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
}

type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
	UserID      int64  `json:"userId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type taskList struct {
	Tasks []Task `json:"tasks"`
}

type ChatMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderType     string `json:"senderType"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
	Status         string `json:"status"`
	MessageType    string `json:"messageType"`
}

type Conversation struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Title     string        `json:"title"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
	Status    string        `json:"status"`
	Messages  []ChatMessage `json:"messages"`
}

type ConversationPage struct {
	Conversations []Conversation `json:"conversations"`
	TotalCount    int            `json:"totalCount"`
	HasMore       bool           `json:"hasMore"`
}

// TodoActionResult reports which task mutation, if any, a chat message
// resolved to.
type TodoActionResult struct {
	Action    string `json:"action"`
	TodoID    string `json:"todoId,omitempty"`
	TodoTitle string `json:"todoTitle,omitempty"`
}

type SendMessageResponse struct {
	ConversationID   string            `json:"conversationId"`
	Message          string            `json:"message"`
	AIResponse       string            `json:"aiResponse"`
	Timestamp        string            `json:"timestamp"`
	TodoActionResult *TodoActionResult `json:"todoActionResult,omitempty"`
}

type HealthStatus struct {
	Status string `json:"status"`
}
