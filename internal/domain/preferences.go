package domain

import "time"

// Preferences son las preferencias de comunicacion del usuario.
// Cada campo vacio (o nil) significa "no definido"; el merge es
// last-writer-wins campo por campo.
type Preferences struct {
	Language         string    `json:"language,omitempty"`
	Formality        string    `json:"formality,omitempty"`         // casual | formal | professional
	Tone             string    `json:"tone,omitempty"`              // enthusiastic | calm | friendly | neutral
	EmojiUsage       *bool     `json:"emoji_usage,omitempty"`
	ResponseLength   string    `json:"response_length,omitempty"`   // brief | balanced | detailed
	ExplanationStyle string    `json:"explanation_style,omitempty"` // simple | technical | analogies
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

var (
	formalityValues        = map[string]struct{}{"casual": {}, "formal": {}, "professional": {}}
	toneValues             = map[string]struct{}{"enthusiastic": {}, "calm": {}, "friendly": {}, "neutral": {}}
	responseLengthValues   = map[string]struct{}{"brief": {}, "balanced": {}, "detailed": {}}
	explanationStyleValues = map[string]struct{}{"simple": {}, "technical": {}, "analogies": {}}
)

// Validate rechaza valores fuera de los enums cerrados. Campos vacios pasan.
func (p Preferences) Validate() bool {
	if p.Formality != "" {
		if _, ok := formalityValues[p.Formality]; !ok {
			return false
		}
	}
	if p.Tone != "" {
		if _, ok := toneValues[p.Tone]; !ok {
			return false
		}
	}
	if p.ResponseLength != "" {
		if _, ok := responseLengthValues[p.ResponseLength]; !ok {
			return false
		}
	}
	if p.ExplanationStyle != "" {
		if _, ok := explanationStyleValues[p.ExplanationStyle]; !ok {
			return false
		}
	}
	return true
}

// Merge aplica sobre p los campos definidos de in y reporta si hubo cambios.
// El timestamp lo avanza el llamador solo cuando changed es verdadero.
func (p *Preferences) Merge(in Preferences) bool {
	changed := false
	if in.Language != "" && in.Language != p.Language {
		p.Language = in.Language
		changed = true
	}
	if in.Formality != "" && in.Formality != p.Formality {
		p.Formality = in.Formality
		changed = true
	}
	if in.Tone != "" && in.Tone != p.Tone {
		p.Tone = in.Tone
		changed = true
	}
	if in.EmojiUsage != nil && (p.EmojiUsage == nil || *in.EmojiUsage != *p.EmojiUsage) {
		v := *in.EmojiUsage
		p.EmojiUsage = &v
		changed = true
	}
	if in.ResponseLength != "" && in.ResponseLength != p.ResponseLength {
		p.ResponseLength = in.ResponseLength
		changed = true
	}
	if in.ExplanationStyle != "" && in.ExplanationStyle != p.ExplanationStyle {
		p.ExplanationStyle = in.ExplanationStyle
		changed = true
	}
	return changed
}

// IsZero indica si no hay ninguna preferencia definida.
func (p Preferences) IsZero() bool {
	return p.Language == "" && p.Formality == "" && p.Tone == "" &&
		p.EmojiUsage == nil && p.ResponseLength == "" && p.ExplanationStyle == ""
}
