package session

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskdeck/internal/db"
)

// sessionKey is the fixed row key; exactly one signed-in user per data dir.
const sessionKey = "current"

type User struct {
	ID       int64
	Email    string
	Username string
}

// Store persists the bearer token and user record locally. Reads fail open:
// if the storage layer is unavailable the store reports "no session" rather
// than an error, so a broken disk degrades to the logged-out state.
type Store struct {
	gdb *gorm.DB
}

func NewStore(gdb *gorm.DB) (*Store, error) {
	if gdb == nil {
		return nil, errors.New("db is required")
	}
	return &Store{gdb: gdb}, nil
}

func (s *Store) Save(user User, token string) error {
	if s == nil || s.gdb == nil {
		return errors.New("session store is not initialized")
	}
	if token == "" {
		return errors.New("token is required")
	}
	row := db.SessionRecord{
		Key:       sessionKey,
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		UpdatedAt: time.Now().UTC().Unix(),
	}
	return s.gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// Token returns the stored bearer token, or "" when absent or unreadable.
func (s *Store) Token() string {
	row, ok := s.load()
	if !ok {
		return ""
	}
	return row.Token
}

// Current returns the stored user record. ok is false when no complete
// session (token plus user) is stored.
func (s *Store) Current() (User, bool) {
	row, ok := s.load()
	if !ok || row.Token == "" || row.UserID == 0 {
		return User{}, false
	}
	return User{ID: row.UserID, Email: row.Email, Username: row.Username}, true
}

func (s *Store) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// Clear drops the stored session. Used by logout and by the gateway's 401
// handling; clearing an already-empty store is not an error.
func (s *Store) Clear() error {
	if s == nil || s.gdb == nil {
		return errors.New("session store is not initialized")
	}
	return s.gdb.Where("key = ?", sessionKey).Delete(&db.SessionRecord{}).Error
}

// RefreshIfNeeded is a stub: token expiry handling is out of scope and the
// stored token is always considered fresh.
func (s *Store) RefreshIfNeeded() bool {
	return true
}

func (s *Store) load() (db.SessionRecord, bool) {
	if s == nil || s.gdb == nil {
		return db.SessionRecord{}, false
	}
	var row db.SessionRecord
	if err := s.gdb.First(&row, "key = ?", sessionKey).Error; err != nil {
		return db.SessionRecord{}, false
	}
	return row, true
}
