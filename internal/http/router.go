package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas. auth es el
// middleware de identidad; las rutas de salud y de emision de tokens quedan
// afuera de el.
func NewRouter(
	logger *zap.Logger,
	auth gin.HandlerFunc,
	userH *UserHandler,
	chatH *ChatHandler,
	contentH *ContentHandler,
	prefH *PreferenceHandler,
	convH *ConversationHandler,
	personaH *PersonaHandler,
	healthH *HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/health", healthH.Health)

	authRoutes := r.Group("/auth")
	authRoutes.POST("/register", userH.Register)
	authRoutes.POST("/login", userH.Login)
	authRoutes.POST("/refresh", userH.RefreshToken)
	authRoutes.POST("/logout", userH.Logout)

	authed := r.Group("/", auth)
	authed.POST("/chat", chatH.Stream)

	content := authed.Group("/content")
	content.POST("/age-verify", contentH.AgeVerify)
	content.GET("/session/:conversation_id", contentH.Session)
	content.POST("/classify", contentH.Classify)

	prefs := authed.Group("/preferences")
	prefs.GET("", prefH.Get)
	prefs.POST("", prefH.Update)
	prefs.DELETE("", prefH.Clear)

	authed.GET("/conversations", convH.List)
	authed.POST("/conversation/reset", convH.Reset)
	authed.POST("/memory/clear", convH.ClearMemories)

	authed.GET("/personas", personaH.List)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
// El stream de chat lo pisa antes de mandar el primer byte.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
