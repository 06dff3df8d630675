package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"vlmax-platform/models"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists conversations between requests.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*models.Conversation, error)
	Save(ctx context.Context, conv *models.Conversation) error
}

// MemorySessionStore keeps conversations in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Conversation
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.Conversation)}
}

// Load returns a copy of the stored conversation, or an empty one for an
// unknown session.
func (s *MemorySessionStore) Load(_ context.Context, sessionID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.sessions[sessionID]
	if !ok {
		return &models.Conversation{ID: sessionID}, nil
	}
	conv.Turns = append([]models.Turn(nil), conv.Turns...)
	return &conv, nil
}

func (s *MemorySessionStore) Save(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *conv
	stored.Turns = append([]models.Turn(nil), conv.Turns...)
	s.sessions[conv.ID] = stored
	return nil
}

// EvictIdle drops sessions not updated within maxIdle and returns their ids.
func (s *MemorySessionStore) EvictIdle(maxIdle time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	var removed []string
	for id, conv := range s.sessions {
		if conv.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RedisSessionStore stores each conversation as a JSON value with a TTL.
type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (*models.Conversation, error) {
	data, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &models.Conversation{ID: sessionID}, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	conv.ID = sessionID
	return &conv, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, conv *models.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(conv.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
