package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"persona-gateway/internal/domain"
)

type PersonaRepository interface {
	Upsert(ctx context.Context, persona domain.Persona) error
	GetByName(ctx context.Context, name string) (domain.Persona, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Persona, error)
	List(ctx context.Context) ([]domain.Persona, error)
}

type PgPersonaRepository struct {
	pool querier
}

func NewPgPersonaRepository(pool *pgxpool.Pool) *PgPersonaRepository {
	return &PgPersonaRepository{pool: pool}
}

func (r *PgPersonaRepository) Upsert(ctx context.Context, persona domain.Persona) error {
	const query = `
		INSERT INTO personas (id, name, archetype, traits, base_prompt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name)
		DO UPDATE SET
			archetype = EXCLUDED.archetype,
			traits = EXCLUDED.traits,
			base_prompt = EXCLUDED.base_prompt
	`
	_, err := r.pool.Exec(ctx, query,
		persona.ID,
		strings.ToLower(strings.TrimSpace(persona.Name)),
		persona.Archetype,
		persona.Traits,
		persona.BasePrompt,
		persona.CreatedAt,
	)
	return err
}

func (r *PgPersonaRepository) GetByName(ctx context.Context, name string) (domain.Persona, error) {
	const query = `
		SELECT id, name, archetype, traits, base_prompt, created_at
		FROM personas
		WHERE name = LOWER($1)
	`
	var p domain.Persona
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(name)).Scan(
		&p.ID,
		&p.Name,
		&p.Archetype,
		&p.Traits,
		&p.BasePrompt,
		&p.CreatedAt,
	)
	if err != nil {
		return domain.Persona{}, err
	}
	return p, nil
}

func (r *PgPersonaRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Persona, error) {
	const query = `
		SELECT id, name, archetype, traits, base_prompt, created_at
		FROM personas
		WHERE id = $1
	`
	var p domain.Persona
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Archetype,
		&p.Traits,
		&p.BasePrompt,
		&p.CreatedAt,
	)
	if err != nil {
		return domain.Persona{}, err
	}
	return p, nil
}

func (r *PgPersonaRepository) List(ctx context.Context) ([]domain.Persona, error) {
	const query = `
		SELECT id, name, archetype, traits, base_prompt, created_at
		FROM personas
		ORDER BY name ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var personas []domain.Persona
	for rows.Next() {
		var p domain.Persona
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Archetype,
			&p.Traits,
			&p.BasePrompt,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		personas = append(personas, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return personas, nil
}
