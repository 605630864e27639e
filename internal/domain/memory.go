package domain

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
)

const (
	MemoryKindFact       = "fact"
	MemoryKindPreference = "preference"
	MemoryKindEvent      = "event"
	MemoryKindContext    = "context"
)

// MemoryEntry es un recuerdo durable extraido de la conversacion.
// Nunca se muta: se reemplaza insertando una fila nueva.
type MemoryEntry struct {
	ID             uuid.UUID       `json:"id"`
	ConversationID uuid.UUID       `json:"conversation_id"`
	UserID         uuid.UUID       `json:"user_id"`   // denormalizado: filtro de autorizacion obligatorio
	PersonaID      uuid.UUID       `json:"persona_id"`
	Content        string          `json:"content"` // oracion declarativa corta en primera persona
	Embedding      pgvector.Vector `json:"embedding"`
	Kind           string          `json:"kind"`
	Importance     float64         `json:"importance"` // 0.0 - 1.0
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ValidMemoryKind indica si kind pertenece al conjunto cerrado.
func ValidMemoryKind(kind string) bool {
	switch kind {
	case MemoryKindFact, MemoryKindPreference, MemoryKindEvent, MemoryKindContext:
		return true
	}
	return false
}

// ScoredMemory es una memoria recuperada junto a su puntaje combinado.
type ScoredMemory struct {
	MemoryEntry
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
}
