package memory

import (
	"time"

	"agentmsa-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// GuestSessionRepository keeps unauthenticated conversation state in
// process memory. Sessions expire after an hour of inactivity; an expired
// guest conversation is simply gone, matching a closed browser tab.
type GuestSessionRepository struct {
	cache *cache.Cache
}

func NewGuestSessionRepository() *GuestSessionRepository {
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &GuestSessionRepository{
		cache: c,
	}
}

// GetOrCreate returns the session for the token, minting a fresh session
// (and token) when none exists. Every access renews the TTL.
func (r *GuestSessionRepository) GetOrCreate(token string) *entity.GuestSession {
	if token != "" {
		if x, found := r.cache.Get(token); found {
			sess := x.(*entity.GuestSession)
			r.cache.Set(token, sess, cache.DefaultExpiration)
			return sess
		}
	}
	sess := entity.NewGuestSession(uuid.NewString())
	r.cache.Set(sess.Token, sess, cache.DefaultExpiration)
	return sess
}

func (r *GuestSessionRepository) Get(token string) (*entity.GuestSession, bool) {
	if x, found := r.cache.Get(token); found {
		return x.(*entity.GuestSession), true
	}
	return nil, false
}

func (r *GuestSessionRepository) Save(sess *entity.GuestSession) {
	r.cache.Set(sess.Token, sess, cache.DefaultExpiration)
}

func (r *GuestSessionRepository) Delete(token string) {
	r.cache.Delete(token)
}
