package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/loanlens/backend/src/logger"
	"github.com/username/loanlens/backend/src/models"
)

// SessionStore holds each session's uploaded dataset in memory. Sessions
// expire after the configured TTL of inactivity; nothing is persisted.
type SessionStore struct {
	sessions *cache.Cache
	ttl      time.Duration
}

func NewSessionStore(ttl, cleanupInterval time.Duration) *SessionStore {
	return &SessionStore{
		sessions: cache.New(ttl, cleanupInterval),
		ttl:      ttl,
	}
}

// Create registers a new empty session and returns its ID. The ID is a
// capability token, not an authenticated identity.
func (s *SessionStore) Create() string {
	id := uuid.NewString()
	s.sessions.Set(id, &models.Dataset{Reports: make(map[string]models.LoadReport)}, cache.DefaultExpiration)
	logger.L.Info("Session created", "sessionID", id)
	return id
}

// Get returns the session's dataset, refreshing its expiry.
func (s *SessionStore) Get(id string) (*models.Dataset, bool) {
	v, found := s.sessions.Get(id)
	if !found {
		return nil, false
	}
	ds := v.(*models.Dataset)
	s.sessions.Set(id, ds, cache.DefaultExpiration) // sliding expiry
	return ds, true
}

// Delete drops the session and its dataset.
func (s *SessionStore) Delete(id string) {
	s.sessions.Delete(id)
	logger.L.Info("Session deleted", "sessionID", id)
}
