package domain

import (
	"time"

	"github.com/google/uuid"
)

// Persona es una personalidad preconfigurada y global; cada una forma un
// universo de memoria aislado por usuario.
type Persona struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"` // unico, en minusculas
	Archetype  string         `json:"archetype"`
	Traits     map[string]int `json:"traits"` // humor, formality, enthusiasm, empathy (0-10)
	BasePrompt string         `json:"base_prompt"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Trait devuelve el valor de un rasgo acotado al rango 0-10.
func (p *Persona) Trait(name string) int {
	v, ok := p.Traits[name]
	if !ok {
		return 5
	}
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
