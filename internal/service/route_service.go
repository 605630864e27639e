package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/repository"
)

// RouteService resuelve la ruta de contenido de cada turno y mantiene el
// estado de sesión. La fila en Postgres es la fuente de verdad; la cache
// solo acelera lecturas y se repuebla en cada escritura.
type RouteService struct {
	states          repository.SessionStateRepository
	cache           SessionStateCache
	lockWindow      int
	maxGateAttempts int
}

func NewRouteService(states repository.SessionStateRepository, cache SessionStateCache, lockWindow, maxGateAttempts int) *RouteService {
	if lockWindow <= 0 {
		lockWindow = 5
	}
	if maxGateAttempts <= 0 {
		maxGateAttempts = 3
	}
	return &RouteService{
		states:          states,
		cache:           cache,
		lockWindow:      lockWindow,
		maxGateAttempts: maxGateAttempts,
	}
}

// State devuelve el estado de sesión de la conversación, inicializándolo en
// UNSET si todavía no existe fila.
func (s *RouteService) State(ctx context.Context, conversationID uuid.UUID) (domain.SessionState, error) {
	if s.cache != nil {
		if state, ok := s.cache.Get(conversationID); ok {
			return state, nil
		}
	}

	state, err := s.states.Get(ctx, conversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionState{
			ConversationID: conversationID,
			CurrentRoute:   domain.RouteUnset,
		}, nil
	}
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("get session state: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(state)
	}
	return state, nil
}

// Decide clasifica el turno contra la máquina de estados, persiste el estado
// resultante y lo devuelve junto con la acción a ejecutar.
func (s *RouteService) Decide(ctx context.Context, conversationID uuid.UUID, cls domain.Classification, messageIndex int) (domain.SessionState, domain.RouteAction, error) {
	state, err := s.State(ctx, conversationID)
	if err != nil {
		return domain.SessionState{}, "", err
	}

	next, action := decideRoute(state, cls, messageIndex, s.lockWindow, s.maxGateAttempts, time.Now().UTC())
	next.ConversationID = conversationID

	if err := s.save(ctx, next); err != nil {
		return domain.SessionState{}, "", err
	}
	return next, action, nil
}

// VerifyAge procesa la respuesta del usuario a la pregunta de edad. Una
// confirmación abre las rutas explícitas y limpia GATE_PENDING; una negativa
// cuenta como intento fallido.
func (s *RouteService) VerifyAge(ctx context.Context, conversationID uuid.UUID, confirmed bool) (domain.SessionState, error) {
	state, err := s.State(ctx, conversationID)
	if err != nil {
		return domain.SessionState{}, err
	}

	state.ConversationID = conversationID
	state.LastUpdated = time.Now().UTC()
	if confirmed {
		state.AgeVerified = true
		if state.CurrentRoute == domain.RouteGatePending {
			state.CurrentRoute = domain.RouteNormal
		}
	} else {
		state.AgeVerificationAttempts++
	}

	if err := s.save(ctx, state); err != nil {
		return domain.SessionState{}, err
	}
	return state, nil
}

func (s *RouteService) save(ctx context.Context, state domain.SessionState) error {
	if err := s.states.Upsert(ctx, state); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(state)
	}
	return nil
}
