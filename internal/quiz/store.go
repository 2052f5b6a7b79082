package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionKeyPrefix is the Redis key prefix for quiz sessions
	SessionKeyPrefix = "quiz:session:"
	// DefaultSessionTTL bounds how long an idle attempt survives
	DefaultSessionTTL = 2 * time.Hour
)

// SessionStore persists sessions between requests. Get returns nil, nil for
// an unknown or expired id.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore keeps sessions as JSON values with a sliding TTL
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis backed session store
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return SessionKeyPrefix + id
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("failed to decode quiz session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode quiz session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save quiz session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete quiz session: %w", err)
	}
	return nil
}

// MemorySessionStore is the single-process fallback when no Redis is configured
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-process session store
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.sessions, id)
		return nil, nil
	}
	s := entry.session
	return &s, nil
}

func (m *MemorySessionStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{session: *s, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
