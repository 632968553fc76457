package entity

import (
	"sync"

	"github.com/google/uuid"
)

type SessionMode string

const (
	// ModeGuest holds the conversation in local memory only.
	ModeGuest SessionMode = "guest"
	// ModePersisted mirrors a remote chat; local message state is a
	// read-only projection of the store.
	ModePersisted SessionMode = "persisted"
)

// GuestMessage is a message held by an unauthenticated session. It has no
// store identity or timestamp until migrated.
type GuestMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Sources []Source `json:"sources,omitempty"`
}

// GuestSession is the transient, process-local session state: current
// mode, locally held messages, and the one-shot migration marker.
type GuestSession struct {
	// Mu serializes all reads and writes of the fields below. Callers
	// hold it for the duration of an operation so interleaved requests
	// on the same session token cannot see half-applied transitions.
	Mu sync.Mutex

	Token         string
	Mode          SessionMode
	CurrentChatId *uuid.UUID
	Messages      []GuestMessage

	// MigratedFor binds the one-shot migration flag to the identity it
	// ran for. A login as a different user (or a fresh login after
	// logout) is a new transition and migrates again.
	MigratedFor *uuid.UUID

	Busy bool
}

func NewGuestSession(token string) *GuestSession {
	return &GuestSession{
		Token: token,
		Mode:  ModeGuest,
	}
}

// Append adds a message to local state. It is refused in persisted mode,
// where the store owns message state.
func (s *GuestSession) Append(msg GuestMessage) bool {
	if s.Mode != ModeGuest {
		return false
	}
	s.Messages = append(s.Messages, msg)
	return true
}

// Select switches the session to persisted mode for the given chat,
// clearing local messages first so stale state is never shown.
func (s *GuestSession) Select(chatId uuid.UUID) {
	s.Messages = nil
	s.CurrentChatId = &chatId
	s.Mode = ModePersisted
}

// Reset returns the session to an empty guest conversation and clears the
// migration marker, the "new chat" action.
func (s *GuestSession) Reset() {
	s.Messages = nil
	s.CurrentChatId = nil
	s.Mode = ModeGuest
	s.MigratedFor = nil
}

// HasMigratedFor reports whether migration already ran for this identity.
func (s *GuestSession) HasMigratedFor(userId uuid.UUID) bool {
	return s.MigratedFor != nil && *s.MigratedFor == userId
}
