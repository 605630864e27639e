package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"persona-gateway/internal/domain"
)

// SessionStateRepository persiste el estado de ruteo por conversación.
// La fila es la fuente de verdad; la cache en redis solo acelera lecturas.
type SessionStateRepository interface {
	Get(ctx context.Context, conversationID uuid.UUID) (domain.SessionState, error)
	Upsert(ctx context.Context, state domain.SessionState) error
}

type PgSessionStateRepository struct {
	pool querier
}

func NewPgSessionStateRepository(pool *pgxpool.Pool) *PgSessionStateRepository {
	return &PgSessionStateRepository{pool: pool}
}

func (r *PgSessionStateRepository) Get(ctx context.Context, conversationID uuid.UUID) (domain.SessionState, error) {
	const query = `
		SELECT conversation_id, age_verified, age_verification_attempts, current_route, route_locked_until_message_index, last_updated
		FROM session_states
		WHERE conversation_id = $1
	`
	var s domain.SessionState
	err := r.pool.QueryRow(ctx, query, conversationID).Scan(
		&s.ConversationID,
		&s.AgeVerified,
		&s.AgeVerificationAttempts,
		&s.CurrentRoute,
		&s.RouteLockedUntilMessageIndex,
		&s.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionState{}, err
	}
	return s, err
}

func (r *PgSessionStateRepository) Upsert(ctx context.Context, state domain.SessionState) error {
	const query = `
		INSERT INTO session_states (conversation_id, age_verified, age_verification_attempts, current_route, route_locked_until_message_index, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (conversation_id)
		DO UPDATE SET
			age_verified = EXCLUDED.age_verified,
			age_verification_attempts = EXCLUDED.age_verification_attempts,
			current_route = EXCLUDED.current_route,
			route_locked_until_message_index = EXCLUDED.route_locked_until_message_index,
			last_updated = EXCLUDED.last_updated
	`
	_, err := r.pool.Exec(ctx, query,
		state.ConversationID,
		state.AgeVerified,
		state.AgeVerificationAttempts,
		state.CurrentRoute,
		state.RouteLockedUntilMessageIndex,
		state.LastUpdated,
	)
	return err
}
