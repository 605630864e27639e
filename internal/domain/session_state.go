package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState es el estado de ruteo persistido por conversacion.
// Sobrevive reinicios del proceso; la cache solo acelera lecturas.
type SessionState struct {
	ConversationID               uuid.UUID  `json:"conversation_id"`
	AgeVerified                  bool       `json:"age_verified"`
	AgeVerificationAttempts      int        `json:"age_verification_attempts"`
	CurrentRoute                 RouteState `json:"current_route"`
	RouteLockedUntilMessageIndex int        `json:"route_locked_until_message_index"`
	LastUpdated                  time.Time  `json:"last_updated"`
}

// Locked indica si el lock-in sigue vigente para el indice de mensaje dado.
func (s *SessionState) Locked(messageIndex int) bool {
	return s.CurrentRoute.IsExplicit() && messageIndex < s.RouteLockedUntilMessageIndex
}
