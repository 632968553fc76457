package memory

import (
	"testing"

	"agentmsa-be/internal/entity"

	"github.com/google/uuid"
)

func TestGetOrCreateMintsToken(t *testing.T) {
	repo := NewGuestSessionRepository()

	sess := repo.GetOrCreate("")
	if sess.Token == "" {
		t.Fatal("expected a minted token")
	}
	if sess.Mode != entity.ModeGuest {
		t.Errorf("new session mode = %q, want guest", sess.Mode)
	}

	again := repo.GetOrCreate(sess.Token)
	if again != sess {
		t.Error("expected the same session for a known token")
	}
}

func TestUnknownTokenGetsFreshSession(t *testing.T) {
	repo := NewGuestSessionRepository()

	sess := repo.GetOrCreate("expired-or-bogus")
	if sess.Token == "expired-or-bogus" {
		t.Error("unknown tokens must not be adopted; a fresh one is minted")
	}

	if _, found := repo.Get("expired-or-bogus"); found {
		t.Error("bogus token must not resolve")
	}
	if _, found := repo.Get(sess.Token); !found {
		t.Error("minted token must resolve")
	}
}

func TestDelete(t *testing.T) {
	repo := NewGuestSessionRepository()

	sess := repo.GetOrCreate("")
	sess.Append(entity.GuestMessage{Role: "user", Content: "hi"})
	repo.Save(sess)
	repo.Delete(sess.Token)

	if _, found := repo.Get(sess.Token); found {
		t.Error("deleted session must not resolve")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	repo := NewGuestSessionRepository()

	a := repo.GetOrCreate("")
	b := repo.GetOrCreate("")
	if a.Token == b.Token {
		t.Fatal("two fresh sessions must get distinct tokens")
	}

	a.Append(entity.GuestMessage{Role: "user", Content: "only in a"})
	if len(b.Messages) != 0 {
		t.Error("sessions must not share message state")
	}

	id := uuid.New()
	b.Select(id)
	if a.Mode != entity.ModeGuest {
		t.Error("selecting in one session must not flip the other")
	}
}
