package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat is one persisted conversation owned by a single user. The store
// assigns Id and timestamps; UpdatedAt and Preview are bumped on every
// saved message.
type Chat struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     string
	Preview   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Source is a ranked citation attached to an assistant message. It is
// stored verbatim and never mutated after creation.
type Source struct {
	Title   string  `json:"title,omitempty"`
	Link    string  `json:"link,omitempty"`
	Summary string  `json:"summary,omitempty"`
	Answer  string  `json:"answer,omitempty"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score,omitempty"`
	Date    string  `json:"date,omitempty"`
}

// ChatMessage is immutable once created. Seq is assigned when a batch of
// guest messages is migrated so their relative order survives coarse
// store timestamps; messages appended one at a time carry Seq 0.
type ChatMessage struct {
	Id        uuid.UUID
	ChatId    uuid.UUID
	Role      string
	Content   string
	Sources   []Source
	Seq       int
	CreatedAt time.Time
}
