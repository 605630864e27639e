package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"persona-gateway/internal/domain"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	SetPersona(ctx context.Context, id, personaID uuid.UUID, updatedAt time.Time) error
	UpdateSummary(ctx context.Context, id uuid.UUID, summary string, updatedAt time.Time) error
	Touch(ctx context.Context, id uuid.UUID, updatedAt time.Time) error
}

type PgConversationRepository struct {
	pool querier
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) Create(ctx context.Context, conversation domain.Conversation) error {
	const query = `
		INSERT INTO conversations (id, user_id, persona_id, title, last_summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var personaID interface{}
	if conversation.PersonaID != nil {
		personaID = *conversation.PersonaID
	}

	_, err := r.pool.Exec(ctx, query,
		conversation.ID,
		conversation.UserID,
		personaID,
		conversation.Title,
		conversation.LastSummary,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	)
	return err
}

func (r *PgConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	const query = `
		SELECT id, user_id, persona_id, title, last_summary, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`
	var c domain.Conversation
	var personaID sql.NullString
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.UserID,
		&personaID,
		&c.Title,
		&c.LastSummary,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, err
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	if personaID.Valid {
		pid, perr := uuid.Parse(personaID.String)
		if perr == nil {
			c.PersonaID = &pid
		}
	}
	return c, nil
}

func (r *PgConversationRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	const query = `
		SELECT id, user_id, persona_id, title, last_summary, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var personaID sql.NullString
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&personaID,
			&c.Title,
			&c.LastSummary,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if personaID.Valid {
			pid, perr := uuid.Parse(personaID.String)
			if perr == nil {
				c.PersonaID = &pid
			}
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conversations, nil
}

// SetPersona fija la persona en el primer turno; no la cambia si ya hay una.
func (r *PgConversationRepository) SetPersona(ctx context.Context, id, personaID uuid.UUID, updatedAt time.Time) error {
	const query = `
		UPDATE conversations
		SET persona_id = $1, updated_at = $2
		WHERE id = $3 AND persona_id IS NULL
	`
	_, err := r.pool.Exec(ctx, query, personaID, updatedAt, id)
	return err
}

func (r *PgConversationRepository) UpdateSummary(ctx context.Context, id uuid.UUID, summary string, updatedAt time.Time) error {
	const query = `
		UPDATE conversations
		SET last_summary = $1, updated_at = $2
		WHERE id = $3
	`
	_, err := r.pool.Exec(ctx, query, summary, updatedAt, id)
	return err
}

func (r *PgConversationRepository) Touch(ctx context.Context, id uuid.UUID, updatedAt time.Time) error {
	const query = `
		UPDATE conversations
		SET updated_at = $1
		WHERE id = $2
	`
	_, err := r.pool.Exec(ctx, query, updatedAt, id)
	return err
}
