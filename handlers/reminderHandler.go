package handlers

import (
	"HealPing/middlewares"
	"HealPing/services"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DispatchRunner runs one locked pass of the reminder dispatcher.
type DispatchRunner interface {
	RunOnce(ctx context.Context) (services.DispatchResult, error)
}

type ReminderHandler struct {
	service    *services.ReminderService
	dispatcher DispatchRunner
}

func NewReminderHandler(service *services.ReminderService, dispatcher DispatchRunner) *ReminderHandler {
	return &ReminderHandler{service: service, dispatcher: dispatcher}
}

func (h *ReminderHandler) CreateReminder(c *gin.Context) {
	var in services.ReminderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	reminder, err := h.service.Create(c.Request.Context(), middlewares.CurrentClinicID(c), in)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

func (h *ReminderHandler) GetAllReminders(c *gin.Context) {
	reminders, err := h.service.List(c.Request.Context(), middlewares.CurrentClinicID(c), c.Query("status"), c.Query("appointment_id"))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminders)
}

func (h *ReminderHandler) GetReminderByID(c *gin.Context) {
	reminder, err := h.service.Get(c.Request.Context(), middlewares.CurrentClinicID(c), c.Param("reminder_id"))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

func (h *ReminderHandler) DeleteReminder(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middlewares.CurrentClinicID(c), c.Param("reminder_id")); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendReminder dispatches a reminder immediately. A delivery failure is
// recorded on the reminder and still answers 200.
func (h *ReminderHandler) SendReminder(c *gin.Context) {
	reminder, err := h.service.Send(c.Request.Context(), middlewares.CurrentClinicID(c), c.Param("reminder_id"))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

// DispatchDue runs one dispatch pass, for external schedulers.
func (h *ReminderHandler) DispatchDue(c *gin.Context) {
	result, err := h.dispatcher.RunOnce(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, "Reminder dispatch failed", http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
