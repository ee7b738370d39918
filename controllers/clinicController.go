package controllers

import (
	"HealPing/handlers"
	"HealPing/middlewares"
	"HealPing/models"

	"github.com/gin-gonic/gin"
)

// ClinicHandlers groups the handlers of the clinic workspace.
type ClinicHandlers struct {
	Clinic      *handlers.ClinicHandler
	Patient     *handlers.PatientHandler
	Appointment *handlers.AppointmentHandler
	Reminder    *handlers.ReminderHandler
	Dashboard   *handlers.DashboardHandler
}

// SetupClinicRoutes registers every route behind the role router.
func SetupClinicRoutes(router *gin.Engine, h ClinicHandlers) {
	authorized := router.Group("/")
	authorized.Use(middlewares.RequireAuthorized())

	authorized.GET("/dashboard", h.Dashboard.GetGenericDashboard)
	authorized.GET("/dashboard/patient", middlewares.RequireRoles(models.RolePatient), h.Dashboard.GetPatientPortal)

	doctor := authorized.Group("/clinics")
	doctor.Use(middlewares.RequireRoles(models.RoleDoctor))
	{
		doctor.POST("", h.Clinic.CreateClinic)
		doctor.GET("/mine", middlewares.RequireClinic(), h.Clinic.GetMyClinic)
		doctor.PUT("/mine", middlewares.RequireClinic(), h.Clinic.UpdateMyClinic)
		doctor.GET("/mine/staff", middlewares.RequireClinic(), h.Clinic.GetStaff)
		doctor.POST("/mine/staff", middlewares.RequireClinic(), h.Clinic.AddStaff)
		doctor.DELETE("/mine/staff/:profile_id", middlewares.RequireClinic(), h.Clinic.RemoveStaff)
	}

	// Clinic members working on the clinic's data
	clinic := authorized.Group("/")
	clinic.Use(middlewares.RequireRoles(models.RoleDoctor, models.RoleStaff), middlewares.RequireClinic())
	{
		clinic.GET("/dashboard/doctor", middlewares.RequireRoles(models.RoleDoctor), h.Dashboard.GetStats)
		clinic.GET("/dashboard/stats", h.Dashboard.GetStats)
		clinic.GET("/dashboard/events", h.Dashboard.StreamEvents)

		clinic.GET("/patients", h.Patient.GetAllPatients)
		clinic.POST("/patients", h.Patient.CreatePatient)
		clinic.GET("/patients/:patient_id", h.Patient.GetPatientByID)
		clinic.PUT("/patients/:patient_id", h.Patient.UpdatePatient)
		clinic.DELETE("/patients/:patient_id", h.Patient.DeletePatient)

		clinic.GET("/appointments", h.Appointment.GetAllAppointments)
		clinic.POST("/appointments", h.Appointment.CreateAppointment)
		clinic.GET("/appointments/follow-ups", h.Appointment.GetFollowUps)
		clinic.GET("/appointments/:appointment_id", h.Appointment.GetAppointmentByID)
		clinic.PUT("/appointments/:appointment_id", h.Appointment.UpdateAppointment)
		clinic.PATCH("/appointments/:appointment_id/status", h.Appointment.UpdateAppointmentStatus)
		clinic.DELETE("/appointments/:appointment_id", h.Appointment.DeleteAppointment)

		clinic.GET("/reminders", h.Reminder.GetAllReminders)
		clinic.POST("/reminders", h.Reminder.CreateReminder)
		clinic.GET("/reminders/:reminder_id", h.Reminder.GetReminderByID)
		clinic.DELETE("/reminders/:reminder_id", h.Reminder.DeleteReminder)
		clinic.POST("/reminders/:reminder_id/send", h.Reminder.SendReminder)
	}
}

// SetupInternalRoutes registers machine endpoints guarded by a shared token.
func SetupInternalRoutes(router *gin.Engine, token string, reminders *handlers.ReminderHandler) {
	internal := router.Group("/internal")
	internal.Use(middlewares.ValidateBearerToken(token))
	internal.POST("/reminders/dispatch", reminders.DispatchDue)
}
