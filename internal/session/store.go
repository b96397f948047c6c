// Package session persists per-conversation dialogue state between turns.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vozsalud/cita-platform/internal/dialog"
)

const stateKeyPrefix = "dialog_state:"

// Store loads and saves the dialogue state for a conversation. An unknown
// conversation loads as the empty state.
type Store interface {
	Load(ctx context.Context, conversationID string) (dialog.State, error)
	Save(ctx context.Context, conversationID string, st dialog.State) error
	Clear(ctx context.Context, conversationID string) error
}

// RedisStore keeps dialogue state in Redis with a sliding TTL.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("cita.internal.session"),
	}
}

func (s *RedisStore) Load(ctx context.Context, conversationID string) (dialog.State, error) {
	ctx, span := s.tracer.Start(ctx, "session.load")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(conversationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return dialog.State{}, nil
		}
		span.RecordError(err)
		return dialog.State{}, fmt.Errorf("session: failed to load state: %w", err)
	}

	var st dialog.State
	if err := json.Unmarshal(data, &st); err != nil {
		span.RecordError(err)
		return dialog.State{}, fmt.Errorf("session: failed to decode state: %w", err)
	}
	return st, nil
}

func (s *RedisStore) Save(ctx context.Context, conversationID string, st dialog.State) error {
	ctx, span := s.tracer.Start(ctx, "session.save")
	defer span.End()

	data, err := json.Marshal(st)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(conversationID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist state: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, conversationID string) error {
	ctx, span := s.tracer.Start(ctx, "session.clear")
	defer span.End()

	if err := s.redis.Del(ctx, stateKey(conversationID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to clear state: %w", err)
	}
	return nil
}

func stateKey(conversationID string) string {
	return stateKeyPrefix + conversationID
}

// MemoryStore is the in-process fallback used when Redis is not configured.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]dialog.State
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]dialog.State)}
}

func (s *MemoryStore) Load(_ context.Context, conversationID string) (dialog.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[conversationID], nil
}

func (s *MemoryStore) Save(_ context.Context, conversationID string, st dialog.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[conversationID] = st
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, conversationID)
	return nil
}
