package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatMessage struct {
	Id      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatId  uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_chat_created,priority:1"`
	Role    string    `gorm:"type:varchar(50);not null"`
	Content string    `gorm:"type:text;not null"`
	// Sources holds the assistant's citations verbatim as jsonb; user
	// messages leave it null.
	Sources   datatypes.JSON `gorm:"type:jsonb"`
	Seq       int            `gorm:"not null;default:0"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index:idx_chat_messages_chat_created,priority:2"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
