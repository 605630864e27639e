package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"persona-gateway/internal/domain"
)

// --- MOCKS DE REPOSITORIOS EN MEMORIA ---

type memorySessionStateRepo struct {
	states map[uuid.UUID]domain.SessionState
}

func newMemorySessionStateRepo() *memorySessionStateRepo {
	return &memorySessionStateRepo{states: make(map[uuid.UUID]domain.SessionState)}
}

func (m *memorySessionStateRepo) Get(ctx context.Context, conversationID uuid.UUID) (domain.SessionState, error) {
	state, ok := m.states[conversationID]
	if !ok {
		return domain.SessionState{}, pgx.ErrNoRows
	}
	return state, nil
}

func (m *memorySessionStateRepo) Upsert(ctx context.Context, state domain.SessionState) error {
	m.states[state.ConversationID] = state
	return nil
}
