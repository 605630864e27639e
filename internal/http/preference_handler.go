package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/service"
)

// PreferenceHandler expone las preferencias de comunicacion del usuario.
type PreferenceHandler struct {
	logger      *zap.Logger
	preferences *service.PreferenceService
}

// NewPreferenceHandler crea una instancia de PreferenceHandler con dependencias necesarias.
func NewPreferenceHandler(logger *zap.Logger, preferences *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{
		logger:      logger,
		preferences: preferences,
	}
}

// Get maneja GET /preferences.
func (h *PreferenceHandler) Get(c *gin.Context) {
	userID, ok := GetAuthUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, kindAuthFailed, "missing token")
		return
	}

	prefs, err := h.preferences.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fail(c, http.StatusUnauthorized, kindAuthFailed, "unknown user")
			return
		}
		h.logger.Error("get preferences failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, kindInternal, "could not load preferences")
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

// Update maneja POST /preferences. El cuerpo es un parcial: solo los campos
// presentes se mergean sobre lo guardado.
func (h *PreferenceHandler) Update(c *gin.Context) {
	userID, ok := GetAuthUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, kindAuthFailed, "missing token")
		return
	}

	var req domain.Preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid preferences request", zap.Error(err))
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid request")
		return
	}

	prefs, _, err := h.preferences.Update(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPreferences):
			fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid preferences")
		case errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusUnauthorized, kindAuthFailed, "unknown user")
		default:
			h.logger.Error("update preferences failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, kindInternal, "could not update preferences")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

// Clear maneja DELETE /preferences.
func (h *PreferenceHandler) Clear(c *gin.Context) {
	userID, ok := GetAuthUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, kindAuthFailed, "missing token")
		return
	}

	if err := h.preferences.Clear(c.Request.Context(), userID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fail(c, http.StatusUnauthorized, kindAuthFailed, "unknown user")
			return
		}
		h.logger.Error("clear preferences failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, kindInternal, "could not clear preferences")
		return
	}

	c.Status(http.StatusNoContent)
}
