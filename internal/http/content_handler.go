package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/moderation"
	"persona-gateway/internal/service"
)

// ContentHandler expone la verificacion de edad, el estado de sesion y el
// sondeo del clasificador.
type ContentHandler struct {
	logger        *zap.Logger
	routes        *service.RouteService
	conversations *service.ConversationService
}

// NewContentHandler crea una instancia de ContentHandler con dependencias necesarias.
func NewContentHandler(logger *zap.Logger, routes *service.RouteService, conversations *service.ConversationService) *ContentHandler {
	return &ContentHandler{
		logger:        logger,
		routes:        routes,
		conversations: conversations,
	}
}

// AgeVerify maneja POST /content/age-verify. Responder que no tambien
// consume un intento del gate.
func (h *ContentHandler) AgeVerify(c *gin.Context) {
	userID, ok := GetAuthUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, kindAuthFailed, "missing token")
		return
	}

	var req struct {
		ConversationID string `json:"conversation_id" binding:"required"`
		Confirmed      *bool  `json:"confirmed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid age verify request", zap.Error(err))
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid request")
		return
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid conversation_id")
		return
	}

	if !h.authorizeConversation(c, userID, conversationID) {
		return
	}

	state, err := h.routes.VerifyAge(c.Request.Context(), conversationID, *req.Confirmed)
	if err != nil {
		h.logger.Error("age verify failed", zap.Error(err),
			zap.String("conversation_id", conversationID.String()))
		fail(c, http.StatusInternalServerError, kindInternal, "could not verify age")
		return
	}

	c.JSON(http.StatusOK, gin.H{"age_verified": state.AgeVerified})
}

// Session maneja GET /content/session/:conversation_id.
func (h *ContentHandler) Session(c *gin.Context) {
	userID, ok := GetAuthUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, kindAuthFailed, "missing token")
		return
	}

	conversationID, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid conversation_id")
		return
	}

	if !h.authorizeConversation(c, userID, conversationID) {
		return
	}

	state, err := h.routes.State(c.Request.Context(), conversationID)
	if err != nil {
		h.logger.Error("session state read failed", zap.Error(err),
			zap.String("conversation_id", conversationID.String()))
		fail(c, http.StatusInternalServerError, kindInternal, "could not read session state")
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": state})
}

// Classify maneja POST /content/classify. Es un sondeo sin estado: clasifica
// el mensaje como si llegara a una conversacion nueva, sin tocar ninguna.
func (h *ContentHandler) Classify(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid classify request", zap.Error(err))
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid request")
		return
	}

	cls := moderation.Classify(req.Message, domain.RouteUnset)
	indicators := cls.Indicators
	if indicators == nil {
		indicators = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"label":      cls.Label,
		"confidence": cls.Confidence,
		"indicators": indicators,
		"route":      service.PreviewRoute(cls),
	})
}

// authorizeConversation valida pertenencia y responde el error si no pasa.
func (h *ContentHandler) authorizeConversation(c *gin.Context, userID, conversationID uuid.UUID) bool {
	_, err := h.conversations.Authorize(c.Request.Context(), userID, conversationID)
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		fail(c, http.StatusBadRequest, kindInvalidRequest, "unknown conversation")
	case errors.Is(err, service.ErrForbidden):
		fail(c, http.StatusForbidden, kindForbidden, "conversation belongs to another user")
	default:
		h.logger.Error("conversation authorize failed", zap.Error(err),
			zap.String("conversation_id", conversationID.String()))
		fail(c, http.StatusInternalServerError, kindInternal, "could not load conversation")
	}
	return false
}
