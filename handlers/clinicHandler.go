package handlers

import (
	"HealPing/middlewares"
	"HealPing/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ClinicHandler struct {
	clinics *services.ClinicService
}

func NewClinicHandler(clinics *services.ClinicService) *ClinicHandler {
	return &ClinicHandler{clinics: clinics}
}

func (h *ClinicHandler) CreateClinic(c *gin.Context) {
	var in services.ClinicInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	clinic, err := h.clinics.Register(c.Request.Context(), middlewares.CurrentProfile(c), in)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"clinic": clinic, "redirect": services.DoctorDashboardPath})
}

func (h *ClinicHandler) GetMyClinic(c *gin.Context) {
	clinic, err := h.clinics.Get(c.Request.Context(), middlewares.CurrentClinicID(c))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clinic)
}

func (h *ClinicHandler) UpdateMyClinic(c *gin.Context) {
	var in services.ClinicInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	clinic, err := h.clinics.Update(c.Request.Context(), middlewares.CurrentClinicID(c), in)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clinic)
}

// AddStaff attaches a signed-up staff member to the caller's clinic.
func (h *ClinicHandler) AddStaff(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	profile, err := h.clinics.AddStaff(c.Request.Context(), middlewares.CurrentClinicID(c), body.Email)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ClinicHandler) GetStaff(c *gin.Context) {
	staff, err := h.clinics.ListStaff(c.Request.Context(), middlewares.CurrentClinicID(c))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (h *ClinicHandler) RemoveStaff(c *gin.Context) {
	if err := h.clinics.RemoveStaff(c.Request.Context(), middlewares.CurrentClinicID(c), c.Param("profile_id")); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
