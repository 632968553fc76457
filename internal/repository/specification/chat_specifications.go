package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatID struct {
	ChatID uuid.UUID
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}

// MessageOrder is the canonical read order for chat messages: store
// timestamp first, then the migration sequence number as a tiebreaker so
// concurrently migrated guest messages keep their local order.
type MessageOrder struct{}

func (s MessageOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("seq ASC")
}

// ChatListOrder orders a user's chats most recently touched first.
type ChatListOrder struct{}

func (s ChatListOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("updated_at DESC")
}
