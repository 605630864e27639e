package service

import (
	"strings"

	"persona-gateway/internal/domain"
)

/* =======================
   Reglas de detección
   ======================= */

type preferenceRule struct {
	field string
	terms []string
	apply func(p *domain.Preferences)
}

func boolPtr(v bool) *bool { return &v }

// El orden importa: las reglas negativas van antes que las positivas del
// mismo campo ("don't use emojis" contiene "use emojis") y "informal" debe
// evaluarse antes que "formal".
var preferenceRules = []preferenceRule{
	{
		field: "emoji_usage",
		terms: []string{"no emoji", "without emoji", "stop using emoji", "don't use emoji", "dont use emoji", "skip the emoji"},
		apply: func(p *domain.Preferences) { p.EmojiUsage = boolPtr(false) },
	},
	{
		field: "emoji_usage",
		terms: []string{"use emoji", "more emoji", "love emoji", "like emoji", "with emoji"},
		apply: func(p *domain.Preferences) { p.EmojiUsage = boolPtr(true) },
	},
	{
		field: "formality",
		terms: []string{"informal", "casual", "less formal", "relaxed tone"},
		apply: func(p *domain.Preferences) { p.Formality = "casual" },
	},
	{
		field: "formality",
		terms: []string{"professional"},
		apply: func(p *domain.Preferences) { p.Formality = "professional" },
	},
	{
		field: "formality",
		terms: []string{"formal", "formally"},
		apply: func(p *domain.Preferences) { p.Formality = "formal" },
	},
	{
		field: "tone",
		terms: []string{"enthusiastic", "more enthusiasm", "energetic", "excited tone"},
		apply: func(p *domain.Preferences) { p.Tone = "enthusiastic" },
	},
	{
		field: "tone",
		terms: []string{"calm", "soothing", "relaxing tone"},
		apply: func(p *domain.Preferences) { p.Tone = "calm" },
	},
	{
		field: "tone",
		terms: []string{"friendly", "warm tone"},
		apply: func(p *domain.Preferences) { p.Tone = "friendly" },
	},
	{
		field: "tone",
		terms: []string{"neutral tone", "be neutral"},
		apply: func(p *domain.Preferences) { p.Tone = "neutral" },
	},
	{
		field: "response_length",
		terms: []string{"brief", "keep it short", "short answers", "shorter answers", "concise", "to the point"},
		apply: func(p *domain.Preferences) { p.ResponseLength = "brief" },
	},
	{
		field: "response_length",
		terms: []string{"detailed", "more detail", "in depth", "longer answers", "elaborate more"},
		apply: func(p *domain.Preferences) { p.ResponseLength = "detailed" },
	},
	{
		field: "response_length",
		terms: []string{"balanced answers", "balanced length"},
		apply: func(p *domain.Preferences) { p.ResponseLength = "balanced" },
	},
	{
		field: "explanation_style",
		terms: []string{"simple terms", "explain simply", "like i'm five", "like im five", "eli5", "keep it simple"},
		apply: func(p *domain.Preferences) { p.ExplanationStyle = "simple" },
	},
	{
		field: "explanation_style",
		terms: []string{"technical", "technically"},
		apply: func(p *domain.Preferences) { p.ExplanationStyle = "technical" },
	},
	{
		field: "explanation_style",
		terms: []string{"analogy", "analogies", "metaphor"},
		apply: func(p *domain.Preferences) { p.ExplanationStyle = "analogies" },
	},
}

var languageNames = map[string]string{
	"english":    "english",
	"spanish":    "spanish",
	"español":    "spanish",
	"espanol":    "spanish",
	"french":     "french",
	"francés":    "french",
	"german":     "german",
	"portuguese": "portuguese",
	"português":  "portuguese",
	"italian":    "italian",
	"japanese":   "japanese",
}

var languageTriggers = []string{
	"speak in ",
	"speak to me in ",
	"talk in ",
	"talk to me in ",
	"respond in ",
	"answer in ",
	"reply in ",
	"write in ",
	"switch to ",
}

/* =======================
   Detector
   ======================= */

// DetectPreferences reconoce pedidos de estilo dentro de un mensaje y arma
// un registro parcial. Sin coincidencias devuelve el cero absoluto: el
// llamador no debe tocar nada en ese caso.
func DetectPreferences(message string) domain.Preferences {
	norm := strings.Join(strings.Fields(strings.ToLower(message)), " ")
	if norm == "" {
		return domain.Preferences{}
	}

	var prefs domain.Preferences
	seen := make(map[string]bool)
	for _, rule := range preferenceRules {
		if seen[rule.field] {
			continue
		}
		if containsAnyTerm(norm, rule.terms) {
			rule.apply(&prefs)
			seen[rule.field] = true
		}
	}

	if lang := detectLanguage(norm); lang != "" {
		prefs.Language = lang
	}
	return prefs
}

func containsAnyTerm(norm string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(norm, term) {
			return true
		}
	}
	return false
}

func detectLanguage(norm string) string {
	for _, trigger := range languageTriggers {
		idx := strings.Index(norm, trigger)
		if idx == -1 {
			continue
		}
		rest := norm[idx+len(trigger):]
		word := rest
		if sp := strings.IndexByte(rest, ' '); sp != -1 {
			word = rest[:sp]
		}
		word = strings.Trim(word, ".,;:!?\"'")
		if canonical, ok := languageNames[word]; ok {
			return canonical
		}
	}
	return ""
}
