package repositories

import (
	"HealPing/models"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ReminderFilter narrows a reminder listing. Zero fields are ignored.
type ReminderFilter struct {
	Status         string
	AppointmentID  string
	AppointmentIDs []string
}

type ReminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, clinicID, id string) (*models.Reminder, error)
	List(ctx context.Context, clinicID string, filter ReminderFilter) ([]models.Reminder, error)
	ListForAppointments(ctx context.Context, appointmentIDs []string) ([]models.Reminder, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	Claim(ctx context.Context, id string, statuses []string, now time.Time, lease time.Duration) (bool, error)
	MarkResult(ctx context.Context, id, status, failureReason string, sentAt *time.Time) error
	Delete(ctx context.Context, clinicID, id string) error
}

type reminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	if err := r.db.WithContext(ctx).Omit("Appointment").Create(reminder).Error; err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// GetByID loads the reminder with its appointment and patient.
func (r *reminderRepository) GetByID(ctx context.Context, clinicID, id string) (*models.Reminder, error) {
	var reminder models.Reminder
	err := r.db.WithContext(ctx).
		Preload("Appointment").
		Preload("Appointment.Patient").
		First(&reminder, "id = ? AND clinic_id = ?", id, clinicID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return &reminder, nil
}

func (r *reminderRepository) List(ctx context.Context, clinicID string, filter ReminderFilter) ([]models.Reminder, error) {
	query := r.db.WithContext(ctx).Where("clinic_id = ?", clinicID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AppointmentID != "" {
		query = query.Where("appointment_id = ?", filter.AppointmentID)
	}
	if len(filter.AppointmentIDs) > 0 {
		query = query.Where("appointment_id IN ?", filter.AppointmentIDs)
	}

	reminders := []models.Reminder{}
	if err := query.Order("scheduled_for ASC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

func (r *reminderRepository) ListForAppointments(ctx context.Context, appointmentIDs []string) ([]models.Reminder, error) {
	reminders := []models.Reminder{}
	if len(appointmentIDs) == 0 {
		return reminders, nil
	}
	err := r.db.WithContext(ctx).
		Where("appointment_id IN ?", appointmentIDs).
		Order("scheduled_for ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list appointment reminders: %w", err)
	}
	return reminders, nil
}

// ListDue returns up to limit unclaimed pending reminders scheduled at or
// before now, oldest first, with appointment and patient loaded.
func (r *reminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	reminders := []models.Reminder{}
	err := r.db.WithContext(ctx).
		Preload("Appointment").
		Preload("Appointment.Patient").
		Where("status = ? AND scheduled_for <= ?", models.ReminderPending, now).
		Where("(claimed_until IS NULL OR claimed_until < ?)", now).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

// Claim marks the reminder as being delivered until now+lease, provided its
// status is one of statuses and no live claim exists. It reports whether this
// caller won the claim.
func (r *reminderRepository) Claim(ctx context.Context, id string, statuses []string, now time.Time, lease time.Duration) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ? AND status IN ?", id, statuses).
		Where("(claimed_until IS NULL OR claimed_until < ?)", now).
		Update("claimed_until", now.Add(lease))
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkResult records a delivery outcome and releases the claim.
func (r *reminderRepository) MarkResult(ctx context.Context, id, status, failureReason string, sentAt *time.Time) error {
	if !models.IsValidReminderStatus(status) {
		return fmt.Errorf("invalid reminder status %q", status)
	}
	result := r.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         status,
			"failure_reason": failureReason,
			"sent_at":        sentAt,
			"claimed_until":  nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update reminder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reminderRepository) Delete(ctx context.Context, clinicID, id string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND clinic_id = ?", id, clinicID).Delete(&models.Reminder{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete reminder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
