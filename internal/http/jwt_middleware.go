package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"persona-gateway/internal/service"
)

const authUserIDKey = "auth_user_id"

// AuthMiddleware resuelve la identidad del caller. Un bearer JWT valido
// siempre gana; el header X-User-Id se acepta solo cuando allowHeaderAuth
// esta habilitado y no vino bearer, para deploys detras de un gateway que
// ya autentico. En ese modo el usuario se crea perezosamente.
func AuthMiddleware(logger *zap.Logger, jwtSvc *service.JWTService, users *service.UserService, allowHeaderAuth bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header != "" {
			if jwtSvc == nil {
				fail(c, http.StatusInternalServerError, kindInternal, "jwt not configured")
				return
			}
			if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
				fail(c, http.StatusUnauthorized, kindAuthFailed, "invalid token")
				return
			}
			token := strings.TrimSpace(header[len("Bearer "):])
			claims, err := jwtSvc.ParseAccessToken(token)
			if err != nil {
				fail(c, http.StatusUnauthorized, kindAuthFailed, "invalid token")
				return
			}
			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				fail(c, http.StatusUnauthorized, kindAuthFailed, "invalid token")
				return
			}
			c.Set(authUserIDKey, userID)
			c.Next()
			return
		}

		if allowHeaderAuth {
			if externalID := strings.TrimSpace(c.GetHeader("X-User-Id")); externalID != "" {
				user, err := users.Resolve(c.Request.Context(), externalID, "")
				if err != nil {
					if logger != nil {
						logger.Warn("header auth resolve failed", zap.Error(err),
							zap.String("external_id", externalID))
					}
					fail(c, http.StatusUnauthorized, kindAuthFailed, "invalid user")
					return
				}
				c.Set(authUserIDKey, user.ID)
				c.Next()
				return
			}
		}

		fail(c, http.StatusUnauthorized, kindAuthFailed, "missing token")
	}
}

// GetAuthUserID obtiene el id del usuario autenticado desde el contexto.
func GetAuthUserID(c *gin.Context) (uuid.UUID, bool) {
	val, ok := c.Get(authUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}
