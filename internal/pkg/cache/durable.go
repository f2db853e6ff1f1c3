package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kanghoo/kanghoo/internal/pkg/database"
)

// Namespace prefixes every durable-tier key so a Clear can remove exactly
// the keys this cache owns
const Namespace = "kanghoo:cache:"

// PersistedEntry is the wire format of a durable-tier entry
type PersistedEntry struct {
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
	TTLMillis  int64           `json:"ttl"`
	Expires    time.Time       `json:"expires"`
	LastAccess time.Time       `json:"last_access,omitempty"`
}

// DurableStore is the cross-session tier behind the in-process cache
type DurableStore interface {
	Set(ctx context.Context, key string, entry PersistedEntry) error
	Get(ctx context.Context, key string) (*PersistedEntry, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// redisStore persists cache entries in Redis under the cache namespace
type redisStore struct {
	redisClient *database.RedisClient
}

// NewRedisStore creates a Redis-backed durable cache tier
func NewRedisStore(redisClient *database.RedisClient) DurableStore {
	return &redisStore{redisClient: redisClient}
}

func (s *redisStore) Set(ctx context.Context, key string, entry PersistedEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	// Redis prunes the key itself once the entry TTL elapses
	ttl := time.Duration(entry.TTLMillis) * time.Millisecond
	if err := s.redisClient.Set(ctx, Namespace+key, payload, ttl); err != nil {
		return fmt.Errorf("failed to persist cache entry: %w", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, key string) (*PersistedEntry, error) {
	payload, err := s.redisClient.Get(ctx, Namespace+key)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry PersistedEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.redisClient.Delete(ctx, Namespace+key)
}

func (s *redisStore) Clear(ctx context.Context) error {
	keys, err := s.redisClient.Keys(ctx, Namespace+"*")
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	for _, key := range keys {
		if err := s.redisClient.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", key, err)
		}
	}
	return nil
}

func (s *redisStore) Count(ctx context.Context) (int, error) {
	keys, err := s.redisClient.Keys(ctx, Namespace+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to list cache keys: %w", err)
	}
	return len(keys), nil
}
