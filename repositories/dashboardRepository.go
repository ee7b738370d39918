package repositories

import (
	"HealPing/models"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DashboardStats are the aggregate counts shown on the clinic dashboard.
type DashboardStats struct {
	TotalPatients        int64 `json:"total_patients"`
	TodayAppointments    int64 `json:"today_appointments"`
	UpcomingAppointments int64 `json:"upcoming_appointments"`
	PendingReminders     int64 `json:"pending_reminders"`
	FollowUpsDue         int64 `json:"follow_ups_due"`
	CompletedThisMonth   int64 `json:"completed_this_month"`
}

type DashboardRepository interface {
	Stats(ctx context.Context, clinicID string, now time.Time) (*DashboardStats, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

// Stats runs the whole set of dashboard counts. Days are computed in now's location.
func (r *dashboardRepository) Stats(ctx context.Context, clinicID string, now time.Time) (*DashboardStats, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)
	weekAhead := now.AddDate(0, 0, 7)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	db := r.db.WithContext(ctx)
	stats := &DashboardStats{}

	counts := []struct {
		name  string
		dest  *int64
		query *gorm.DB
	}{
		{"patients", &stats.TotalPatients,
			db.Model(&models.Patient{}).Where("clinic_id = ?", clinicID)},
		{"today appointments", &stats.TodayAppointments,
			db.Model(&models.Appointment{}).Where("clinic_id = ? AND appointment_date >= ? AND appointment_date < ?", clinicID, startOfDay, endOfDay)},
		{"upcoming appointments", &stats.UpcomingAppointments,
			db.Model(&models.Appointment{}).Where("clinic_id = ? AND status = ? AND appointment_date >= ? AND appointment_date < ?", clinicID, models.AppointmentScheduled, now, weekAhead)},
		{"pending reminders", &stats.PendingReminders,
			db.Model(&models.Reminder{}).Where("clinic_id = ? AND status = ?", clinicID, models.ReminderPending)},
		{"follow-ups", &stats.FollowUpsDue,
			db.Model(&models.Appointment{}).Where("clinic_id = ? AND follow_up_date IS NOT NULL AND follow_up_date >= ? AND follow_up_date < ?", clinicID, startOfDay, weekAhead)},
		{"completed appointments", &stats.CompletedThisMonth,
			db.Model(&models.Appointment{}).Where("clinic_id = ? AND status = ? AND appointment_date >= ?", clinicID, models.AppointmentCompleted, startOfMonth)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
	}
	return stats, nil
}
