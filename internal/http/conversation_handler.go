package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/service"
)

// ConversationHandler expone listado y mantenimiento de conversaciones.
type ConversationHandler struct {
	logger        *zap.Logger
	conversations *service.ConversationService
	personas      *service.PersonaService
}

// NewConversationHandler crea una instancia de ConversationHandler con dependencias necesarias.
func NewConversationHandler(logger *zap.Logger, conversations *service.ConversationService, personas *service.PersonaService) *ConversationHandler {
	return &ConversationHandler{
		logger:        logger,
		conversations: conversations,
		personas:      personas,
	}
}

// List maneja GET /conversations. Acepta ?persona=<nombre> para filtrar.
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := GetAuthUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, kindAuthFailed, "missing token")
		return
	}

	items, err := h.conversations.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, kindInternal, "could not list conversations")
		return
	}

	if name := strings.TrimSpace(c.Query("persona")); name != "" {
		persona, err := h.personas.Resolve(c.Request.Context(), name)
		if err != nil {
			if errors.Is(err, service.ErrPersonaNotFound) {
				fail(c, http.StatusBadRequest, kindInvalidRequest, "unknown personality")
				return
			}
			h.logger.Error("persona filter resolve failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, kindInternal, "could not list conversations")
			return
		}
		filtered := make([]domain.Conversation, 0, len(items))
		for _, conv := range items {
			if conv.PersonaID != nil && *conv.PersonaID == persona.ID {
				filtered = append(filtered, conv)
			}
		}
		items = filtered
	}

	if items == nil {
		items = []domain.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": items})
}

// Reset maneja POST /conversation/reset. Vacia el buffer de corto plazo;
// mensajes y memorias quedan intactos.
func (h *ConversationHandler) Reset(c *gin.Context) {
	userID, conversationID, ok := h.bindConversation(c)
	if !ok {
		return
	}

	if err := h.conversations.Reset(c.Request.Context(), userID, conversationID); err != nil {
		h.respondConversationError(c, err, "could not reset conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// ClearMemories maneja POST /memory/clear.
func (h *ConversationHandler) ClearMemories(c *gin.Context) {
	userID, conversationID, ok := h.bindConversation(c)
	if !ok {
		return
	}

	deleted, err := h.conversations.ClearMemories(c.Request.Context(), userID, conversationID)
	if err != nil {
		h.respondConversationError(c, err, "could not clear memories")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// bindConversation resuelve auth + body {conversation_id} para los POST.
func (h *ConversationHandler) bindConversation(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := GetAuthUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, kindAuthFailed, "missing token")
		return uuid.Nil, uuid.Nil, false
	}

	var req struct {
		ConversationID string `json:"conversation_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid conversation request", zap.Error(err))
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid request")
		return uuid.Nil, uuid.Nil, false
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid conversation_id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, conversationID, true
}

func (h *ConversationHandler) respondConversationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		fail(c, http.StatusBadRequest, kindInvalidRequest, "unknown conversation")
	case errors.Is(err, service.ErrForbidden):
		fail(c, http.StatusForbidden, kindForbidden, "conversation belongs to another user")
	default:
		h.logger.Error("conversation operation failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, kindInternal, fallback)
	}
}
