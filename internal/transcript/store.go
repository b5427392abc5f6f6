package transcript

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskdeck/internal/db"
)

// Store caches settled transcripts and conversation ids locally so a chat
// session keeps its context across CLI invocations. Pending messages are
// never persisted.
type Store struct {
	gdb *gorm.DB
}

func NewStore(gdb *gorm.DB) (*Store, error) {
	if gdb == nil {
		return nil, errors.New("db is required")
	}
	return &Store{gdb: gdb}, nil
}

// RememberConversation upserts the conversation the user is currently in.
func (s *Store) RememberConversation(conversationID string, userID int64, title string) error {
	if s == nil || s.gdb == nil {
		return errors.New("transcript store is not initialized")
	}
	if conversationID == "" {
		return errors.New("conversation id is required")
	}
	row := db.ConversationRecord{
		ConversationID: conversationID,
		UserID:         userID,
		Title:          title,
		Status:         "active",
		UpdatedAt:      time.Now().UTC().Unix(),
	}
	return s.gdb.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"user_id":    row.UserID,
			"title":      row.Title,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
}

// LatestConversationID returns the most recently touched conversation for the
// user, or "" when none is cached.
func (s *Store) LatestConversationID(userID int64) string {
	if s == nil || s.gdb == nil {
		return ""
	}
	var row db.ConversationRecord
	err := s.gdb.Where("user_id = ?", userID).Order("updated_at DESC").First(&row).Error
	if err != nil {
		return ""
	}
	return row.ConversationID
}

// AppendMessages persists settled messages in order.
func (s *Store) AppendMessages(messages []Message) error {
	if s == nil || s.gdb == nil {
		return errors.New("transcript store is not initialized")
	}
	now := time.Now().UTC().Unix()
	for _, m := range messages {
		if m.Status == StatusPending {
			continue
		}
		row := db.ChatMessageRecord{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
			SenderType:     m.SenderType,
			Content:        m.Content,
			Status:         m.Status,
			MessageType:    m.MessageType,
			CreatedAt:      now,
		}
		if err := s.gdb.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// LoadConversation returns the cached messages of a conversation in insertion
// order.
func (s *Store) LoadConversation(conversationID string) ([]Message, error) {
	if s == nil || s.gdb == nil {
		return nil, errors.New("transcript store is not initialized")
	}
	var rows []db.ChatMessageRecord
	err := s.gdb.Where("conversation_id = ?", conversationID).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, Message{
			ID:             row.MessageID,
			ConversationID: row.ConversationID,
			SenderType:     row.SenderType,
			Content:        row.Content,
			Timestamp:      time.Unix(row.CreatedAt, 0).UTC().Format(time.RFC3339),
			Status:         row.Status,
			MessageType:    row.MessageType,
		})
	}
	return out, nil
}

// Clear drops all cached transcripts; called on logout.
func (s *Store) Clear() error {
	if s == nil || s.gdb == nil {
		return errors.New("transcript store is not initialized")
	}
	if err := s.gdb.Where("1 = 1").Delete(&db.ChatMessageRecord{}).Error; err != nil {
		return err
	}
	return s.gdb.Where("1 = 1").Delete(&db.ConversationRecord{}).Error
}
