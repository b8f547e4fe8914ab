package util

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache mirrors live sessions in Redis so most requests resolve the
// logged-in user without a database round trip. A nil client disables it.
type SessionCache struct {
	rdb *redis.Client
}

// NewSessionCache wraps rdb, which may be nil.
func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{rdb: rdb}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Enabled reports whether a Redis client is attached.
func (s *SessionCache) Enabled() bool {
	return s != nil && s.rdb != nil
}

// Store caches the owner of sessionID until ttl elapses.
func (s *SessionCache) Store(ctx context.Context, sessionID string, userID uint, username string, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	val := fmt.Sprintf("%d:%s", userID, username)
	return s.rdb.Set(ctx, sessionKey(sessionID), val, ttl).Err()
}

// Lookup returns the cached owner of sessionID. ok is false on a cache miss.
func (s *SessionCache) Lookup(ctx context.Context, sessionID string) (userID uint, username string, ok bool, err error) {
	if !s.Enabled() {
		return 0, "", false, nil
	}
	val, err := s.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	idPart, name, found := strings.Cut(val, ":")
	if !found {
		return 0, "", false, fmt.Errorf("malformed session cache value for %s", sessionID)
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, "", false, fmt.Errorf("malformed session cache value for %s: %w", sessionID, err)
	}
	return uint(id), name, true, nil
}

// Remove drops sessionID from the cache.
func (s *SessionCache) Remove(ctx context.Context, sessionID string) error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}
