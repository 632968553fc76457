package entity

import (
	"testing"

	"github.com/google/uuid"
)

func TestAppendRefusedInPersistedMode(t *testing.T) {
	sess := NewGuestSession("tok")

	if !sess.Append(GuestMessage{Role: RoleUser, Content: "local"}) {
		t.Fatal("guest append must succeed")
	}

	sess.Select(uuid.New())
	if sess.Append(GuestMessage{Role: RoleUser, Content: "late"}) {
		t.Error("append must be refused once the store owns message state")
	}
	if len(sess.Messages) != 0 {
		t.Errorf("persisted session holds %d local messages, want 0", len(sess.Messages))
	}
}

func TestSelectClearsLocalState(t *testing.T) {
	sess := NewGuestSession("tok")
	sess.Append(GuestMessage{Role: RoleUser, Content: "one"})
	sess.Append(GuestMessage{Role: RoleAssistant, Content: "two"})

	chatId := uuid.New()
	sess.Select(chatId)

	if sess.Mode != ModePersisted {
		t.Errorf("mode = %q, want persisted", sess.Mode)
	}
	if sess.CurrentChatId == nil || *sess.CurrentChatId != chatId {
		t.Error("current chat not set")
	}
	if len(sess.Messages) != 0 {
		t.Error("local messages must be cleared on select")
	}
}

func TestResetClearsMigrationMarker(t *testing.T) {
	sess := NewGuestSession("tok")
	userId := uuid.New()
	sess.MigratedFor = &userId
	sess.Select(uuid.New())

	sess.Reset()

	if sess.Mode != ModeGuest {
		t.Errorf("mode = %q, want guest", sess.Mode)
	}
	if sess.CurrentChatId != nil {
		t.Error("current chat must be cleared")
	}
	if sess.MigratedFor != nil {
		t.Error("migration marker must be cleared; a fresh conversation can migrate again")
	}
}

func TestHasMigratedForIsIdentityKeyed(t *testing.T) {
	sess := NewGuestSession("tok")
	a := uuid.New()
	b := uuid.New()

	if sess.HasMigratedFor(a) {
		t.Error("fresh session must not report a migration")
	}

	sess.MigratedFor = &a
	if !sess.HasMigratedFor(a) {
		t.Error("marker must match the identity it was set for")
	}
	if sess.HasMigratedFor(b) {
		t.Error("marker must not leak across identities")
	}
}
