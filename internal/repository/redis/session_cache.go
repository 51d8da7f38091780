package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minervalabs/minerva/internal/domain"
	"github.com/redis/go-redis/v9"
)

const sessionCachePrefix = "session:"

// SessionCache implements domain.SessionCache on Redis. Sessions are stored
// as one JSON blob per token with a TTL matching the session's remaining
// lifetime, so Redis reclaims entries on its own once they can no longer be
// served.
type SessionCache struct {
	client *Client
}

// NewSessionCache creates a new session cache
func NewSessionCache(client *Client) *SessionCache {
	return &SessionCache{client: client}
}

// Get retrieves the cached session for a token. A miss is (nil, nil).
func (c *SessionCache) Get(ctx context.Context, token string) (*domain.Session, error) {
	data, err := c.client.rdb.Get(ctx, sessionCachePrefix+token).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached session: %w", err)
	}

	return &session, nil
}

// Set caches the session under its token for the given TTL, overwriting any
// previous entry.
func (c *SessionCache) Set(ctx context.Context, token string, session *domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := c.client.rdb.Set(ctx, sessionCachePrefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}
	return nil
}

// Delete evicts the cached session for a token
func (c *SessionCache) Delete(ctx context.Context, token string) error {
	if err := c.client.rdb.Del(ctx, sessionCachePrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete cached session: %w", err)
	}
	return nil
}
