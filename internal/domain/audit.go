package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionGenerate  = "generate"
	AuditActionRefuse    = "refuse"
	AuditActionAgeVerify = "age_verify"
)

// AuditEntry registra la decision de moderacion de cada mensaje de usuario.
// Se escribe exactamente una por mensaje, como linea JSON en el sink.
type AuditEntry struct {
	Timestamp      time.Time  `json:"timestamp"`
	UserID         uuid.UUID  `json:"user_id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	Label          Label      `json:"label"`
	Confidence     float64    `json:"confidence"`
	Indicators     []string   `json:"indicators"`
	Route          RouteState `json:"route"`
	Action         string     `json:"action"` // generate | refuse | age_verify
	MessageDigest  string     `json:"message_digest"`
}
