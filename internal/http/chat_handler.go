package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"persona-gateway/internal/service"
)

// ChatHandler expone el endpoint de chat en streaming.
type ChatHandler struct {
	logger *zap.Logger
	chat   *service.ChatService
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chat *service.ChatService) *ChatHandler {
	return &ChatHandler{
		logger: logger,
		chat:   chat,
	}
}

// Stream maneja POST /chat. La respuesta es NDJSON: eventos thinking, luego
// tokens y un unico done o error al final. Los fallos previos al primer
// evento salen como JSON comun con status HTTP.
func (h *ChatHandler) Stream(c *gin.Context) {
	userID, ok := GetAuthUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, kindAuthFailed, "missing token")
		return
	}

	var req struct {
		Message         string `json:"message" binding:"required"`
		ConversationID  string `json:"conversation_id"`
		PersonalityName string `json:"personality_name"`
		SystemPrompt    string `json:"system_prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid request")
		return
	}

	var conversationID uuid.UUID
	if raw := strings.TrimSpace(req.ConversationID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid conversation_id")
			return
		}
		conversationID = id
	}

	writer := NewStreamWriter(c.Writer)
	err := h.chat.Stream(c.Request.Context(), service.ChatRequest{
		UserID:         userID,
		ConversationID: conversationID,
		Message:        req.Message,
		PersonaName:    req.PersonalityName,
		SystemPrompt:   req.SystemPrompt,
	}, writer)
	if err == nil {
		return
	}
	if writer.Started() {
		// Con el stream abierto ya no hay status que devolver.
		h.logger.Error("chat stream failed mid-flight", zap.Error(err))
		return
	}

	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, kindInvalidRequest, "message must not be empty")
	case errors.Is(err, service.ErrRateLimited):
		fail(c, http.StatusTooManyRequests, kindRateLimited, "too many requests")
	case errors.Is(err, service.ErrUserNotFound):
		fail(c, http.StatusUnauthorized, kindAuthFailed, "unknown user")
	case errors.Is(err, service.ErrPersonaNotFound):
		fail(c, http.StatusBadRequest, kindInvalidRequest, "unknown personality")
	case errors.Is(err, service.ErrConversationNotFound):
		fail(c, http.StatusBadRequest, kindInvalidRequest, "unknown conversation")
	case errors.Is(err, service.ErrForbidden):
		fail(c, http.StatusForbidden, kindForbidden, "conversation belongs to another user")
	default:
		h.logger.Error("chat turn failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, kindInternal, "could not start chat")
	}
}
