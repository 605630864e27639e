package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"persona-gateway/internal/domain"
)

// SessionStateCache acelera las lecturas del estado de ruteo. Un miss nunca
// es error: el servicio cae a Postgres.
type SessionStateCache interface {
	Get(conversationID uuid.UUID) (domain.SessionState, bool)
	Set(state domain.SessionState)
	Invalidate(conversationID uuid.UUID)
}

type memorySessionStateCache struct {
	mu    sync.RWMutex
	items map[uuid.UUID]domain.SessionState
}

func NewMemorySessionStateCache() SessionStateCache {
	return &memorySessionStateCache{
		items: make(map[uuid.UUID]domain.SessionState),
	}
}

func (c *memorySessionStateCache) Get(conversationID uuid.UUID) (domain.SessionState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.items[conversationID]
	return state, ok
}

func (c *memorySessionStateCache) Set(state domain.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[state.ConversationID] = state
}

func (c *memorySessionStateCache) Invalidate(conversationID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, conversationID)
}

type redisSessionStateCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStateCache(client *redis.Client) SessionStateCache {
	if client == nil {
		return nil
	}
	return &redisSessionStateCache{
		client: client,
		prefix: "route:state:",
		ttl:    time.Hour,
	}
}

func (c *redisSessionStateCache) Get(conversationID uuid.UUID) (domain.SessionState, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	raw, err := c.client.Get(ctx, c.prefix+conversationID.String()).Bytes()
	if err != nil {
		return domain.SessionState{}, false
	}
	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.SessionState{}, false
	}
	return state, true
}

func (c *redisSessionStateCache) Set(state domain.SessionState) {
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c.client.Set(ctx, c.prefix+state.ConversationID.String(), raw, c.ttl)
}

func (c *redisSessionStateCache) Invalidate(conversationID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c.client.Del(ctx, c.prefix+conversationID.String())
}
