package service

import (
	"strings"

	"persona-gateway/internal/domain"
)

/* =======================
   Señal emocional
   ======================= */

type emotionRule struct {
	category string
	base     int
	guidance string
	terms    []string
	strong   []string
}

// Escala de intensidad: 0-20 trivial, 21-50 charla normal, 51-80 discusion
// o confesion, 81-100 crisis.
var emotionRules = []emotionRule{
	{
		category: "angry",
		base:     70,
		guidance: "Acknowledge the frustration before anything else; stay calm and do not mirror the anger.",
		terms:    []string{"angry", "furious", "pissed", "fed up", "sick of", "annoyed", "hate this", "hate my"},
		strong:   []string{"furious", "hate"},
	},
	{
		category: "sad",
		base:     60,
		guidance: "Lead with empathy and warmth; avoid upbeat small talk until the user shifts.",
		terms:    []string{"sad", "depressed", "lonely", "heartbroken", "crying", "miss her", "miss him", "miss them", "feeling down"},
		strong:   []string{"heartbroken", "depressed"},
	},
	{
		category: "anxious",
		base:     60,
		guidance: "Be reassuring and concrete; break things into small steps.",
		terms:    []string{"anxious", "worried", "nervous", "scared", "stressed", "overwhelmed", "panic"},
		strong:   []string{"panic", "terrified"},
	},
	{
		category: "excited",
		base:     55,
		guidance: "Match the energy; celebrate with the user before moving on.",
		terms:    []string{"excited", "can't wait", "cant wait", "thrilled", "amazing news", "great news", "finally got"},
		strong:   []string{"thrilled"},
	},
	{
		category: "happy",
		base:     45,
		guidance: "Keep the mood light and positive.",
		terms:    []string{"happy", "great day", "feeling good", "wonderful", "so glad"},
		strong:   nil,
	},
}

// DetectEmotion clasifica el mensaje en una categoria emocional con
// intensidad estimada. La primera regla que matchea gana: el orden va de
// mas a menos urgente.
func DetectEmotion(message string) domain.EmotionSignal {
	norm := strings.Join(strings.Fields(strings.ToLower(message)), " ")
	if norm == "" {
		return domain.EmotionSignal{Category: "neutral"}
	}

	for _, rule := range emotionRules {
		if !containsAnyTerm(norm, rule.terms) {
			continue
		}
		intensity := rule.base
		if containsAnyTerm(norm, rule.strong) {
			intensity += 20
		}
		intensity += emphasisBoost(message)
		if intensity > 100 {
			intensity = 100
		}
		return domain.EmotionSignal{Category: rule.category, Intensity: intensity, Guidance: rule.guidance}
	}
	return domain.EmotionSignal{Category: "neutral"}
}

// emphasisBoost suma por signos de exclamacion y palabras en mayusculas.
func emphasisBoost(message string) int {
	boost := 0
	exclaims := strings.Count(message, "!")
	if exclaims > 2 {
		exclaims = 2
	}
	boost += exclaims * 5
	for _, word := range strings.Fields(message) {
		if len(word) >= 3 && word == strings.ToUpper(word) && word != strings.ToLower(word) {
			boost += 10
			break
		}
	}
	return boost
}

/* =======================
   Meta del turno
   ======================= */

// DetermineGoal decide la meta del turno. userTurns es la cantidad de
// mensajes del usuario en la conversacion, incluyendo el actual.
func DetermineGoal(emotion domain.EmotionSignal, userTurns int) domain.Goal {
	// 1. Crisis emocional: el soporte desplaza cualquier otro tema.
	if emotion.Intensity >= 80 {
		return domain.Goal{
			Description: "Prioritize emotional support over any other topic this turn.",
			Status:      "active",
			Trigger:     "emotional_crisis",
		}
	}

	// 2. Emocion negativa sostenida
	if emotion.Category == "sad" || emotion.Category == "anxious" {
		return domain.Goal{
			Description: "Offer support and gently check how the user is doing.",
			Status:      "active",
			Trigger:     "negative_emotion",
		}
	}

	// 3. Conversacion recien empezada
	if userTurns <= 2 {
		return domain.Goal{
			Description: "Build rapport: learn what brings the user here today.",
			Status:      "active",
			Trigger:     "early_rapport",
		}
	}

	// 4. Momento positivo
	if emotion.Category == "excited" {
		return domain.Goal{
			Description: "Ask a follow-up question about what the user is excited about.",
			Status:      "active",
			Trigger:     "positive_momentum",
		}
	}

	// 5. Fallback
	return domain.Goal{
		Description: "Keep the conversation flowing naturally.",
		Status:      "active",
		Trigger:     "default",
	}
}
