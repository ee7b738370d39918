package services

import (
	"HealPing/cache"
	"HealPing/utils"
	"context"
	"fmt"
)

// SessionStore keeps the active sessions in Redis so tokens can be revoked.
// Keys are session:<user id>:<session id>.
type SessionStore struct {
	cache *cache.Cache
}

func NewSessionStore(cache *cache.Cache) *SessionStore {
	return &SessionStore{cache: cache}
}

// Open records a session for the lifetime of a refresh token.
func (s *SessionStore) Open(ctx context.Context, userID, sessionID string) error {
	if err := s.cache.Set(ctx, sessionKey(userID, sessionID), "1", utils.RefreshTokenExpiry); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	return nil
}

func (s *SessionStore) IsActive(ctx context.Context, userID, sessionID string) (bool, error) {
	if userID == "" || sessionID == "" {
		return false, nil
	}
	value, err := s.cache.Get(ctx, sessionKey(userID, sessionID))
	if err != nil {
		return false, err
	}
	return value != "", nil
}

func (s *SessionStore) Close(ctx context.Context, userID, sessionID string) error {
	return s.cache.Delete(ctx, sessionKey(userID, sessionID))
}

// CloseAll signs the user out everywhere.
func (s *SessionStore) CloseAll(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.cache.DeleteAll(ctx, sessionKey(userID, "*"))
}

func sessionKey(userID, sessionID string) string {
	return "session:" + userID + ":" + sessionID
}
