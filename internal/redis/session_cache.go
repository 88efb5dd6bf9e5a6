package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
)

const (
	activeSessionKey = "active_session_cache"

	// noSessionSentinel marks a cached negative result so that a stream of
	// gaze points with no active session does not hammer PostgreSQL either.
	noSessionSentinel = "none"
)

// SessionCache caches the active-session resolution in Redis with a short
// TTL. Staleness is bounded by the TTL; the conditional gaze insert in the
// store catches the remaining window.
type SessionCache struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

// NewSessionCache creates a session cache with the given TTL.
func NewSessionCache(rdb goredis.Cmdable, ttl time.Duration) *SessionCache {
	return &SessionCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached active session. The second return value reports
// whether the cache held an answer at all: a hit may still carry a nil
// session when "no active session" was cached.
func (c *SessionCache) Get(ctx context.Context) (*domain.TrackingSession, bool) {
	data, err := c.rdb.Get(ctx, activeSessionKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Redis session cache GET failed, falling through to PostgreSQL", "error", err)
		}
		return nil, false
	}

	if string(data) == noSessionSentinel {
		return nil, true
	}

	var session domain.TrackingSession
	if err := json.Unmarshal(data, &session); err != nil {
		slog.Warn("Failed to unmarshal cached session, falling through to PostgreSQL", "error", err)
		return nil, false
	}
	return &session, true
}

// Set caches the resolution result (best-effort). A nil session caches the
// negative sentinel.
func (c *SessionCache) Set(ctx context.Context, session *domain.TrackingSession) {
	payload := []byte(noSessionSentinel)
	if session != nil {
		encoded, err := json.Marshal(session)
		if err != nil {
			slog.Warn("Failed to marshal session for cache", "error", err)
			return
		}
		payload = encoded
	}

	if err := c.rdb.Set(ctx, activeSessionKey, payload, c.ttl).Err(); err != nil {
		slog.Warn("Failed to populate Redis session cache", "error", err)
	}
}

// Invalidate removes the cached resolution, called when a session is started
// or stopped through the API.
func (c *SessionCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, activeSessionKey).Err(); err != nil {
		slog.Warn("Failed to invalidate Redis session cache", "error", err)
	}
}
