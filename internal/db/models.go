package db

// SessionRecord holds the bearer token and the serialized user for the single
// signed-in user. Exactly one row per key; the store keeps one fixed key.
type SessionRecord struct {
	Key       string `gorm:"column:key;primaryKey"`
	Token     string `gorm:"column:token;not null;default:''"`
	UserID    int64  `gorm:"column:user_id;not null;default:0"`
	Email     string `gorm:"column:email;not null;default:''"`
	Username  string `gorm:"column:username;not null;default:''"`
	UpdatedAt int64  `gorm:"column:updated_at;not null;default:0"`
}

func (SessionRecord) TableName() string { return "session" }

// ConversationRecord caches a backend conversation id so chat context
// survives across CLI invocations.
type ConversationRecord struct {
	ConversationID string `gorm:"column:conversation_id;primaryKey"`
	UserID         int64  `gorm:"column:user_id;not null;default:0"`
	Title          string `gorm:"column:title;not null;default:''"`
	Status         string `gorm:"column:status;not null;default:'active'"`
	UpdatedAt      int64  `gorm:"column:updated_at;not null;default:0"`
}

func (ConversationRecord) TableName() string { return "conversations" }

type ChatMessageRecord struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	MessageID      string `gorm:"column:message_id;not null;default:''"`
	ConversationID string `gorm:"column:conversation_id;not null;index"`
	SenderType     string `gorm:"column:sender_type;not null;default:''"`
	Content        string `gorm:"column:content;not null;default:''"`
	Status         string `gorm:"column:status;not null;default:'sent'"`
	MessageType    string `gorm:"column:message_type;not null;default:'text'"`
	CreatedAt      int64  `gorm:"column:created_at;not null;default:0"`
}

func (ChatMessageRecord) TableName() string { return "chat_messages" }
