package http

import (
	"github.com/gin-gonic/gin"
)

// Kinds de error que el gateway expone en respuestas JSON no-stream. Los
// del stream (model_unavailable, internal) viven en el servicio de chat.
const (
	kindAuthFailed     = "auth_failed"
	kindForbidden      = "forbidden"
	kindInvalidRequest = "invalid_request"
	kindRateLimited    = "rate_limited"
	kindInternal       = "internal"
)

// fail corta la request con un cuerpo de error uniforme {error, kind}.
func fail(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "kind": kind})
}
