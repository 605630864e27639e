package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"persona-gateway/internal/domain"
)

type MemoryRepository interface {
	Create(ctx context.Context, memory domain.MemoryEntry) error
	Search(ctx context.Context, params SearchParams) ([]domain.ScoredMemory, error)
	MaxSimilarity(ctx context.Context, userID, personaID uuid.UUID, kind string, embedding pgvector.Vector) (float64, error)
	DeleteByConversation(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
}

// SearchParams acota una búsqueda de memorias. UserID y PersonaID son
// obligatorios: toda fila devuelta pertenece a ese par, sin excepciones.
type SearchParams struct {
	UserID           uuid.UUID
	PersonaID        uuid.UUID
	Embedding        pgvector.Vector
	K                int
	MinSimilarity    float64
	SimilarityWeight float64
	ImportanceWeight float64
}

type PgMemoryRepository struct {
	pool querier
}

func NewPgMemoryRepository(pool *pgxpool.Pool) *PgMemoryRepository {
	return &PgMemoryRepository{pool: pool}
}

func (r *PgMemoryRepository) Create(ctx context.Context, memory domain.MemoryEntry) error {
	const query = `
		INSERT INTO memories (id, conversation_id, user_id, persona_id, content, embedding, kind, importance, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		memory.ID,
		memory.ConversationID,
		memory.UserID,
		memory.PersonaID,
		memory.Content,
		memory.Embedding,
		memory.Kind,
		memory.Importance,
		memory.Metadata,
		memory.CreatedAt,
	)
	return err
}

// Search puntúa cada memoria del par (user, persona) combinando similitud
// coseno e importancia, descarta las que quedan bajo el umbral y devuelve
// las K mejores. Los empates de puntaje se resuelven por recencia.
func (r *PgMemoryRepository) Search(ctx context.Context, params SearchParams) ([]domain.ScoredMemory, error) {
	k := params.K
	if k <= 0 {
		k = 5
	}
	const query = `
		SELECT id, conversation_id, user_id, persona_id, content, embedding, kind, importance, metadata, created_at,
		       1 - (embedding <=> $3) AS similarity,
		       (1 - (embedding <=> $3)) * $4 + importance * $5 AS score
		FROM memories
		WHERE user_id = $1 AND persona_id = $2
		  AND 1 - (embedding <=> $3) >= $6
		ORDER BY score DESC, created_at DESC
		LIMIT $7
	`
	rows, err := r.pool.Query(ctx, query,
		params.UserID,
		params.PersonaID,
		params.Embedding,
		params.SimilarityWeight,
		params.ImportanceWeight,
		params.MinSimilarity,
		k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredMemories(rows)
}

// MaxSimilarity devuelve la similitud coseno más alta contra las memorias
// existentes del mismo (user, persona, kind). Sirve para deduplicar antes
// de insertar.
func (r *PgMemoryRepository) MaxSimilarity(ctx context.Context, userID, personaID uuid.UUID, kind string, embedding pgvector.Vector) (float64, error) {
	const query = `
		SELECT COALESCE(MAX(1 - (embedding <=> $4)), 0)
		FROM memories
		WHERE user_id = $1 AND persona_id = $2 AND kind = $3
	`
	var max float64
	err := r.pool.QueryRow(ctx, query, userID, personaID, kind, embedding).Scan(&max)
	return max, err
}

func (r *PgMemoryRepository) DeleteByConversation(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	const query = `
		DELETE FROM memories
		WHERE conversation_id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, conversationID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanScoredMemories(rows pgxRows) ([]domain.ScoredMemory, error) {
	var memories []domain.ScoredMemory
	for rows.Next() {
		var m domain.ScoredMemory
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.UserID,
			&m.PersonaID,
			&m.Content,
			&m.Embedding,
			&m.Kind,
			&m.Importance,
			&m.Metadata,
			&m.CreatedAt,
			&m.Similarity,
			&m.Score,
		); err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return memories, nil
}

// pgxRows is a minimal interface to allow scanning from pgx rows and simplify testing.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}
