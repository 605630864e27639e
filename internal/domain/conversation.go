package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation agrupa los mensajes de un usuario con una persona.
// La persona queda fijada despues del primer intercambio.
type Conversation struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	PersonaID   *uuid.UUID `json:"persona_id,omitempty"`
	Title       string     `json:"title,omitempty"`
	LastSummary string     `json:"last_summary,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
