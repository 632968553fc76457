package dto

import (
	"time"

	"agentmsa-be/internal/entity"

	"github.com/google/uuid"
)

type AskRequest struct {
	Query string `json:"query" validate:"required"`
}

type MessageDTO struct {
	Id        *uuid.UUID      `json:"id,omitempty"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Sources   []entity.Source `json:"sources,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

type AskResponse struct {
	// SessionToken identifies the guest session; clients echo it via the
	// X-Session-Token header on subsequent requests.
	SessionToken string      `json:"session_token"`
	ChatId       *uuid.UUID  `json:"chat_id,omitempty"`
	Sent         *MessageDTO `json:"sent"`
	Reply        *MessageDTO `json:"reply"`
}

type ChatSummaryResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MigrateResponse struct {
	ChatId       uuid.UUID `json:"chat_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
}

// ChatListSnapshot replaces the client's chat list wholesale.
type ChatListSnapshot struct {
	Chats []ChatSummaryResponse `json:"chats"`
}

// MessagesSnapshot replaces the client's message state wholesale for the
// named chat.
type MessagesSnapshot struct {
	ChatId   uuid.UUID    `json:"chat_id"`
	Messages []MessageDTO `json:"messages"`
}

// ChatChangedMessage is the change-feed payload published on every chat
// or message write.
type ChatChangedMessage struct {
	UserId uuid.UUID  `json:"user_id"`
	ChatId *uuid.UUID `json:"chat_id,omitempty"`
}
