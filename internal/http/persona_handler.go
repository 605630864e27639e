package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/service"
)

// PersonaHandler expone el catalogo de personas.
type PersonaHandler struct {
	logger   *zap.Logger
	personas *service.PersonaService
}

// NewPersonaHandler crea una instancia de PersonaHandler con dependencias necesarias.
func NewPersonaHandler(logger *zap.Logger, personas *service.PersonaService) *PersonaHandler {
	return &PersonaHandler{
		logger:   logger,
		personas: personas,
	}
}

// List maneja GET /personas.
func (h *PersonaHandler) List(c *gin.Context) {
	items, err := h.personas.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list personas failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, kindInternal, "could not list personas")
		return
	}

	if items == nil {
		items = []domain.Persona{}
	}
	c.JSON(http.StatusOK, gin.H{"personas": items})
}
