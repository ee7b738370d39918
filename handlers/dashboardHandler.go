package handlers

import (
	"HealPing/middlewares"
	"HealPing/services"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const eventsKeepAlive = 25 * time.Second

type DashboardHandler struct {
	dashboard *services.DashboardService
	feed      *services.ChangeFeed
}

func NewDashboardHandler(dashboard *services.DashboardService, feed *services.ChangeFeed) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, feed: feed}
}

// GetStats returns the clinic dashboard counters.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context(), middlewares.CurrentClinicID(c))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetPatientPortal returns the signed-in patient's appointments and reminders.
func (h *DashboardHandler) GetPatientPortal(c *gin.Context) {
	portal, err := h.dashboard.Portal(c.Request.Context(), middlewares.DecisionFrom(c).UserID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portal)
}

// GetGenericDashboard is the landing page for roles without a dedicated dashboard.
func (h *DashboardHandler) GetGenericDashboard(c *gin.Context) {
	decision := middlewares.DecisionFrom(c)
	c.JSON(http.StatusOK, gin.H{"role": decision.Role, "profile": decision.Profile})
}

// StreamEvents relays the clinic's change events as Server-Sent Events until
// the client goes away.
func (h *DashboardHandler) StreamEvents(c *gin.Context) {
	clinicID := middlewares.CurrentClinicID(c)
	ctx := c.Request.Context()

	events, err := h.feed.Subscribe(ctx, clinicID)
	if err != nil {
		middlewares.HttpError(c, "Realtime updates unavailable", http.StatusServiceUnavailable, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"clinic_id": clinicID})
	c.Writer.Flush()

	ticker := time.NewTicker(eventsKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("change", event)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
	log.Debug().Str("clinic_id", clinicID).Msg("Event stream closed")
}
