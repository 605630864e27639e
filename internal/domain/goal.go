package domain

// Goal es la meta conversacional activa que el composer inyecta como contexto.
type Goal struct {
	Description string `json:"description"` // Ej: "Ayudar al usuario a concretar el plan que menciono"
	Status      string `json:"status"`      // "active", "completed"
	Trigger     string `json:"trigger"`     // Que senal disparo esta meta
}

func (g Goal) IsZero() bool { return g.Description == "" }

// EmotionSignal resume la carga emocional detectada en el mensaje del usuario.
type EmotionSignal struct {
	Category  string `json:"category"`  // "angry", "sad", "anxious", "excited", "happy", "neutral"
	Intensity int    `json:"intensity"` // 0-100
	Guidance  string `json:"guidance"`  // indicacion de respuesta para el modelo
}

func (e EmotionSignal) IsZero() bool {
	return e.Category == "" || e.Category == "neutral"
}
