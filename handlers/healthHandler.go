package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Component statuses
const (
	StatusOK            = "ok"
	StatusDown          = "down"
	StatusNotConfigured = "not_configured"
)

// PingFunc checks one backing service. A nil PingFunc means the component is not configured.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	components map[string]PingFunc
}

func NewHealthHandler(components map[string]PingFunc) *HealthHandler {
	return &HealthHandler{components: components}
}

// Health answers 200 when every component responds and 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	report := make(map[string]string, len(h.components))
	for name, ping := range h.components {
		switch {
		case ping == nil:
			report[name] = StatusNotConfigured
			status = http.StatusServiceUnavailable
		case ping(ctx) != nil:
			report[name] = StatusDown
			status = http.StatusServiceUnavailable
		default:
			report[name] = StatusOK
		}
	}

	overall := StatusOK
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "components": report})
}
