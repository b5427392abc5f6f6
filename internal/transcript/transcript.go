package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	SenderUser = "user"
	SenderAI   = "ai"

	StatusPending = "pending"
	StatusSent    = "sent"

	TypeText  = "text"
	TypeError = "error"
)

// Message is one entry in the local chat sequence. IDs are client-generated
// until the backend assigns its own on a conversation reload.
type Message struct {
	ID             string
	ConversationID string
	SenderType     string
	Content        string
	Timestamp      string
	Status         string
	MessageType    string
}

// Log is the per-conversation message sequence with two-phase sends: a send
// first appends a pending user message, then either settles it (and appends
// the AI reply) or rolls it back. A pending entry is never left behind.
type Log struct {
	mu       sync.Mutex
	messages []Message
	now      func() time.Time
}

func NewLog() *Log {
	return &Log{now: time.Now}
}

func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.messages...)
}

// Replace swaps in a full conversation reload from the backend.
func (l *Log) Replace(messages []Message) {
	l.mu.Lock()
	l.messages = append([]Message(nil), messages...)
	l.mu.Unlock()
}

// AppendPending records the tentative user message of an in-flight send.
func (l *Log) AppendPending(content string) Message {
	msg := Message{
		ID:          uuid.NewString(),
		SenderType:  SenderUser,
		Content:     content,
		Timestamp:   l.now().UTC().Format(time.RFC3339),
		Status:      StatusPending,
		MessageType: TypeText,
	}
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
	return msg
}

// Settle marks the pending message as sent, stamps the conversation id the
// backend assigned, and appends the AI reply. Returns false when the pending
// id is unknown (already rolled back or replaced).
func (l *Log) Settle(pendingID, conversationID, aiReply, timestamp string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.messages {
		if l.messages[i].ID != pendingID {
			continue
		}
		l.messages[i].Status = StatusSent
		l.messages[i].ConversationID = conversationID
		l.messages = append(l.messages, Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			SenderType:     SenderAI,
			Content:        aiReply,
			Timestamp:      timestamp,
			Status:         StatusSent,
			MessageType:    TypeText,
		})
		return true
	}
	return false
}

// Rollback drops the pending message of a failed send.
func (l *Log) Rollback(pendingID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.messages {
		if l.messages[i].ID == pendingID {
			l.messages = append(l.messages[:i], l.messages[i+1:]...)
			return true
		}
	}
	return false
}

// HasPending reports whether any send is still unsettled.
func (l *Log) HasPending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.Status == StatusPending {
			return true
		}
	}
	return false
}
