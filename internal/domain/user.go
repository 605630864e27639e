package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID      `json:"id"`
	ExternalID   string         `json:"external_id"`
	DisplayName  string         `json:"display_name,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"` // guarda communication_preferences entre otros
	PasswordHash string         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

// MetadataKeyPreferences es la clave dentro de User.Metadata donde viven las preferencias.
const MetadataKeyPreferences = "communication_preferences"
