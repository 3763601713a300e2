package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"rdpmon/model"
)

const sessionListKey = "rdpmon:sessions"

// SessionCache keeps the rendered session list in Redis between
// mutations. Purely an optimization: any cache failure is logged and
// treated as a miss, never surfaced to callers.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache connects to Redis and verifies the connection.
func NewSessionCache(redisURL string, ttl time.Duration) (*SessionCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &SessionCache{client: client, ttl: ttl}, nil
}

// GetSessions returns the cached list, or a miss.
func (sc *SessionCache) GetSessions(ctx context.Context) ([]*model.Session, bool) {
	data, err := sc.client.Get(ctx, sessionListKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("Warning: failed to read session cache: %v", err)
		return nil, false
	}
	var sessions []*model.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Printf("Warning: failed to decode session cache: %v", err)
		return nil, false
	}
	return sessions, true
}

// SetSessions caches the list with the configured TTL.
func (sc *SessionCache) SetSessions(ctx context.Context, sessions []*model.Session) {
	data, err := json.Marshal(sessions)
	if err != nil {
		log.Printf("Warning: failed to encode session cache: %v", err)
		return
	}
	if err := sc.client.Set(ctx, sessionListKey, data, sc.ttl).Err(); err != nil {
		log.Printf("Warning: failed to write session cache: %v", err)
	}
}

// Invalidate drops the cached list; called after every store save.
func (sc *SessionCache) Invalidate(ctx context.Context) {
	if err := sc.client.Del(ctx, sessionListKey).Err(); err != nil {
		log.Printf("Warning: failed to invalidate session cache: %v", err)
	}
}
