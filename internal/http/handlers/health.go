package handlers

import "github.com/gin-gonic/gin"

type HealthHandler struct {
	ping func() error
}

// create a new instance of the health handler
func NewHealthHandler(ping func() error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.ping != nil {
		if err := h.ping(); err != nil {
			ctx.JSON(503, gin.H{"status": "degraded"})
			return
		}
	}

	ctx.JSON(200, gin.H{"status": "ready"})
}
