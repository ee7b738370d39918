package handlers

import (
	"HealPing/middlewares"
	"HealPing/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	gate     *services.Gate
}

func NewProfileHandler(profiles *services.ProfileService, gate *services.Gate) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, gate: gate}
}

// CreateProfile completes sign-up by choosing a role.
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	decision := middlewares.DecisionFrom(c)
	if decision.State == services.Authorized {
		c.JSON(http.StatusConflict, gin.H{"error": "profile already exists", "redirect": decision.Redirect})
		return
	}

	var in services.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	profile, err := h.profiles.Create(ctx, decision.UserID, in)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	next := h.gate.Resolve(ctx, decision.UserID, decision.SessionID)
	c.JSON(http.StatusCreated, gin.H{"profile": profile, "redirect": next.Redirect})
}

func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	c.JSON(http.StatusOK, middlewares.CurrentProfile(c))
}

func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	var body struct {
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), middlewares.DecisionFrom(c).UserID, body.FullName, body.Phone)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
