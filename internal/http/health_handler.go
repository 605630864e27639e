package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// dbPinger es lo minimo que el health check necesita de la base.
type dbPinger interface {
	Ping(ctx context.Context) error
}

// llmPinger es lo minimo que el health check necesita del proveedor primario.
type llmPinger interface {
	HealthCheck(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// HealthHandler reporta el estado del gateway y sus dependencias.
type HealthHandler struct {
	db  dbPinger
	llm llmPinger
}

// NewHealthHandler crea una instancia de HealthHandler con dependencias necesarias.
func NewHealthHandler(db dbPinger, llm llmPinger) *HealthHandler {
	return &HealthHandler{db: db, llm: llm}
}

// Health maneja GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	database := "up"
	if h.db == nil || h.db.Ping(ctx) != nil {
		database = "down"
	}
	llmStatus := "up"
	if h.llm == nil || h.llm.HealthCheck(ctx) != nil {
		llmStatus = "down"
	}

	status := "ok"
	code := http.StatusOK
	if database == "down" || llmStatus == "down" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{"status": status, "database": database, "llm": llmStatus})
}
