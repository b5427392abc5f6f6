package transcript

import (
	"context"
	"log/slog"
	"strings"

	"taskdeck/internal/gateway"
)

type ChatSender interface {
	Send(ctx context.Context, userID int64, message, conversationID string) (gateway.SendMessageResponse, error)
}

// Recorder wraps a chat sender with the two-phase transcript: the outgoing
// message is appended pending, then settled with the reply or rolled back on
// failure. When a store is attached, settled exchanges are also persisted.
type Recorder struct {
	next   ChatSender
	log    *Log
	store  *Store
	keep   bool
	logger *slog.Logger
}

func NewRecorder(next ChatSender, log *Log, store *Store, keep bool, logger *slog.Logger) *Recorder {
	if log == nil {
		log = NewLog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{next: next, log: log, store: store, keep: keep, logger: logger}
}

func (r *Recorder) Log() *Log { return r.log }

func (r *Recorder) Send(ctx context.Context, userID int64, message, conversationID string) (gateway.SendMessageResponse, error) {
	if conversationID == "" && r.store != nil {
		conversationID = r.store.LatestConversationID(userID)
	}
	pending := r.log.AppendPending(message)
	resp, err := r.next.Send(ctx, userID, message, conversationID)
	if err != nil {
		r.log.Rollback(pending.ID)
		return gateway.SendMessageResponse{}, err
	}
	r.log.Settle(pending.ID, resp.ConversationID, resp.AIResponse, resp.Timestamp)

	if r.keep && r.store != nil && resp.ConversationID != "" {
		// Persistence is best-effort: a broken local db must not fail the chat.
		if err := r.store.RememberConversation(resp.ConversationID, userID, firstWords(message, 6)); err != nil {
			r.logger.Warn("failed to remember conversation", "error", err)
		}
		if err := r.store.AppendMessages([]Message{
			{
				ID:             pending.ID,
				ConversationID: resp.ConversationID,
				SenderType:     SenderUser,
				Content:        message,
				Timestamp:      pending.Timestamp,
				Status:         StatusSent,
				MessageType:    TypeText,
			},
			{
				ID:             pending.ID + ":reply",
				ConversationID: resp.ConversationID,
				SenderType:     SenderAI,
				Content:        resp.AIResponse,
				Timestamp:      resp.Timestamp,
				Status:         StatusSent,
				MessageType:    TypeText,
			},
		}); err != nil {
			r.logger.Warn("failed to persist transcript", "error", err)
		}
	}
	return resp, nil
}

// History returns the transcript of a conversation. An empty id resolves to
// the user's most recently touched conversation. Persisted messages win over
// the in-memory log and rehydrate it, unless a send is still in flight.
func (r *Recorder) History(userID int64, conversationID string) ([]Message, error) {
	if conversationID == "" && r.store != nil {
		conversationID = r.store.LatestConversationID(userID)
	}
	if conversationID != "" && r.store != nil {
		msgs, err := r.store.LoadConversation(conversationID)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			if !r.log.HasPending() {
				r.log.Replace(msgs)
			}
			return msgs, nil
		}
	}
	return r.log.Messages(), nil
}

// Clear drops the in-memory log and, when a store is attached, the persisted
// transcripts. Wired to logout.
func (r *Recorder) Clear() error {
	r.log.Replace(nil)
	if r.store == nil {
		return nil
	}
	return r.store.Clear()
}

// firstWords derives a conversation title from the opening message.
func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return s
	}
	return strings.Join(fields[:n], " ")
}
