package service

import (
	"time"

	"persona-gateway/internal/domain"
)

/* =======================
   Textos canónicos
   ======================= */

const (
	// AgeGateQuestion se envía como turno del asistente cuando llega contenido
	// explícito sin verificación de edad. No se llama a ningún modelo.
	AgeGateQuestion = "Before we continue, I need to ask: Are you 18 years of age or older?"

	// RefusalSoftText responde contenido no consensuado, o explícito cuando se
	// agotaron los intentos de verificación.
	RefusalSoftText = "I can't continue with that. Let's take this conversation in a different direction."

	// RefusalHardText responde cualquier señal de riesgo de menores.
	RefusalHardText = "I can't engage with this content, and this topic is closed for this conversation."
)

/* =======================
   Máquina de estados de ruta
   ======================= */

// decideRoute aplica la tabla de transiciones sobre el estado de sesión y la
// clasificación del mensaje entrante. messageIndex es el índice (base cero)
// del mensaje del usuario recién agregado, contando solo turnos del usuario.
//
// Prioridades: MINOR_RISK y NONCONSENSUAL ganan siempre, incluso con lock-in
// vigente. Las etiquetas explícitas pasan por la verificación de edad. SAFE y
// SUGGESTIVE respetan el lock-in para no romper el tono de una escena.
func decideRoute(state domain.SessionState, cls domain.Classification, messageIndex, lockWindow, maxGateAttempts int, now time.Time) (domain.SessionState, domain.RouteAction) {
	next := state
	next.LastUpdated = now

	// HARD_REFUSED es terminal para la conversación: ninguna etiqueta
	// posterior lo revierte.
	if state.CurrentRoute == domain.RouteHardRefused {
		return next, domain.ActionRefuseHard
	}

	switch cls.Label {
	case domain.LabelMinorRisk:
		next.CurrentRoute = domain.RouteHardRefused
		next.RouteLockedUntilMessageIndex = 0
		return next, domain.ActionRefuseHard

	case domain.LabelNonconsensual:
		next.CurrentRoute = domain.RouteRefused
		next.RouteLockedUntilMessageIndex = 0
		return next, domain.ActionRefuseSoft

	case domain.LabelExplicitConsensualAdult, domain.LabelExplicitFetish:
		if !state.AgeVerified {
			if state.AgeVerificationAttempts >= maxGateAttempts {
				next.CurrentRoute = domain.RouteRefused
				return next, domain.ActionRefuseSoft
			}
			next.CurrentRoute = domain.RouteGatePending
			next.AgeVerificationAttempts = state.AgeVerificationAttempts + 1
			return next, domain.ActionRequestAgeGate
		}
		if cls.Label == domain.LabelExplicitFetish {
			next.CurrentRoute = domain.RouteFetish
		} else {
			next.CurrentRoute = domain.RouteExplicit
		}
		next.RouteLockedUntilMessageIndex = messageIndex + lockWindow
		return next, domain.ActionProceed

	case domain.LabelSuggestive:
		if state.Locked(messageIndex) {
			return next, domain.ActionProceed
		}
		next.CurrentRoute = domain.RouteRomance
		return next, domain.ActionProceed

	default: // SAFE
		if state.Locked(messageIndex) {
			return next, domain.ActionProceed
		}
		next.CurrentRoute = domain.RouteNormal
		return next, domain.ActionProceed
	}
}

// PreviewRoute proyecta la ruta que produciría una clasificación sobre una
// conversación recién creada y sin verificar. Es puro: no toca persistencia,
// sirve para el endpoint de sondeo del clasificador. El lock-in y el contador
// de intentos no influyen sobre un estado limpio, por eso van valores fijos.
func PreviewRoute(cls domain.Classification) domain.RouteState {
	fresh := domain.SessionState{CurrentRoute: domain.RouteUnset}
	next, _ := decideRoute(fresh, cls, 0, 1, 1, time.Now().UTC())
	return next.CurrentRoute
}
