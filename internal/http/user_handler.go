package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/service"
)

// UserHandler mantiene dependencias para los endpoints de autenticacion.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	jwtServ  *service.JWTService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		jwtServ:  jwtServ,
	}
}

// Register maneja POST /auth/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		ExternalID  string `json:"external_id" binding:"required"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid request")
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		ExternalID:  req.ExternalID,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists):
			fail(c, http.StatusConflict, kindInvalidRequest, "user already exists")
		case errors.Is(err, service.ErrInvalidExternalID), errors.Is(err, service.ErrInvalidCredentials):
			fail(c, http.StatusBadRequest, kindInvalidRequest, err.Error())
		default:
			h.logger.Error("register failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, kindInternal, "could not register user")
		}
		return
	}

	tokens, err := h.issueTokens(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, kindInternal, "could not issue tokens")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "tokens": tokens})
}

// Login maneja POST /auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		ExternalID string `json:"external_id" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid request")
		return
	}

	user, err := h.userServ.Authenticate(c.Request.Context(), req.ExternalID, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, kindAuthFailed, "invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, kindInternal, "could not login")
		return
	}

	tokens, err := h.issueTokens(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, kindInternal, "could not issue tokens")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": tokens})
}

// RefreshToken maneja POST /auth/refresh.
func (h *UserHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid request")
		return
	}
	if h.jwtServ == nil {
		fail(c, http.StatusInternalServerError, kindInternal, "jwt not configured")
		return
	}

	tokens, err := h.jwtServ.RefreshPair(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, kindAuthFailed, "invalid token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout maneja POST /auth/logout.
func (h *UserHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid logout request", zap.Error(err))
		fail(c, http.StatusBadRequest, kindInvalidRequest, "invalid request")
		return
	}
	if h.jwtServ == nil {
		fail(c, http.StatusInternalServerError, kindInternal, "jwt not configured")
		return
	}

	_ = h.jwtServ.RevokeRefresh(c.Request.Context(), req.RefreshToken)
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) issueTokens(ctx context.Context, user domain.User) (service.TokenPair, error) {
	if h.jwtServ == nil {
		return service.TokenPair{}, errors.New("jwt not configured")
	}
	return h.jwtServ.GeneratePair(ctx, user)
}
