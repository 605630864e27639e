package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"persona-gateway/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (domain.User, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]any) error
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool querier
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, external_id, display_name, metadata, password_hash, created_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.ExternalID,
		user.DisplayName,
		user.Metadata,
		user.PasswordHash,
		user.CreatedAt,
		user.LastActiveAt,
	)
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const query = `
		SELECT id, external_id, display_name, metadata, password_hash, created_at, last_active_at
		FROM users
		WHERE id = $1
	`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByExternalID(ctx context.Context, externalID string) (domain.User, error) {
	const query = `
		SELECT id, external_id, display_name, metadata, password_hash, created_at, last_active_at
		FROM users
		WHERE external_id = $1
	`
	return scanUser(r.pool.QueryRow(ctx, query, externalID))
}

func (r *PgUserRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]any) error {
	const query = `
		UPDATE users
		SET metadata = $1
		WHERE id = $2
	`
	_, err := r.pool.Exec(ctx, query, metadata, id)
	return err
}

func (r *PgUserRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `
		UPDATE users
		SET last_active_at = $1
		WHERE id = $2
	`
	_, err := r.pool.Exec(ctx, query, at, id)
	return err
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.DisplayName,
		&u.Metadata,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.LastActiveAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}
