package repositories

import (
	"HealPing/models"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AppointmentFilter narrows an appointment listing. Zero fields are ignored.
type AppointmentFilter struct {
	Status     string
	PatientID  string
	PatientIDs []string
	From       *time.Time
	To         *time.Time
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, clinicID, id string) (*models.Appointment, error)
	List(ctx context.Context, clinicID string, filter AppointmentFilter) ([]models.Appointment, error)
	ListForPatients(ctx context.Context, patientIDs []string) ([]models.Appointment, error)
	ListFollowUps(ctx context.Context, clinicID string, from, to time.Time) ([]models.Appointment, error)
	Update(ctx context.Context, appointment *models.Appointment) error
	UpdateStatus(ctx context.Context, clinicID, id, status string) error
	Delete(ctx context.Context, clinicID, id string) error
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	if !models.IsValidAppointmentStatus(appointment.Status) {
		return fmt.Errorf("invalid status value %q", appointment.Status)
	}
	if err := r.db.WithContext(ctx).Omit("Patient", "Reminders").Create(appointment).Error; err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, clinicID, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		First(&appointment, "id = ? AND clinic_id = ?", id, clinicID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

// List returns the clinic's appointments ordered by date.
func (r *appointmentRepository) List(ctx context.Context, clinicID string, filter AppointmentFilter) ([]models.Appointment, error) {
	query := r.db.WithContext(ctx).Preload("Patient").Where("clinic_id = ?", clinicID)
	query = applyAppointmentFilter(query, filter)

	appointments := []models.Appointment{}
	if err := query.Order("appointment_date ASC").Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// ListForPatients returns the appointments of the given patients across clinics.
func (r *appointmentRepository) ListForPatients(ctx context.Context, patientIDs []string) ([]models.Appointment, error) {
	appointments := []models.Appointment{}
	if len(patientIDs) == 0 {
		return appointments, nil
	}
	err := r.db.WithContext(ctx).
		Where("patient_id IN ?", patientIDs).
		Order("appointment_date ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

// ListFollowUps returns appointments whose follow-up date falls in [from, to).
func (r *appointmentRepository) ListFollowUps(ctx context.Context, clinicID string, from, to time.Time) ([]models.Appointment, error) {
	appointments := []models.Appointment{}
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("clinic_id = ? AND follow_up_date IS NOT NULL AND follow_up_date >= ? AND follow_up_date < ?", clinicID, from, to).
		Order("follow_up_date ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *models.Appointment) error {
	if !models.IsValidAppointmentStatus(appointment.Status) {
		return fmt.Errorf("invalid status value %q", appointment.Status)
	}
	result := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND clinic_id = ?", appointment.ID, appointment.ClinicID).
		Updates(map[string]interface{}{
			"patient_id":       appointment.PatientID,
			"doctor_id":        appointment.DoctorID,
			"appointment_date": appointment.AppointmentDate,
			"follow_up_date":   appointment.FollowUpDate,
			"status":           appointment.Status,
			"treatment_type":   appointment.TreatmentType,
			"notes":            appointment.Notes,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update appointment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, clinicID, id, status string) error {
	if !models.IsValidAppointmentStatus(status) {
		return fmt.Errorf("invalid status value %q", status)
	}
	result := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND clinic_id = ?", id, clinicID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update appointment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the appointment and its reminders.
func (r *appointmentRepository) Delete(ctx context.Context, clinicID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("appointment_id = ? AND clinic_id = ?", id, clinicID).Delete(&models.Reminder{}).Error; err != nil {
			return fmt.Errorf("failed to delete reminders: %w", err)
		}
		result := tx.Where("id = ? AND clinic_id = ?", id, clinicID).Delete(&models.Appointment{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete appointment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func applyAppointmentFilter(query *gorm.DB, filter AppointmentFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if len(filter.PatientIDs) > 0 {
		query = query.Where("patient_id IN ?", filter.PatientIDs)
	}
	if filter.From != nil {
		query = query.Where("appointment_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("appointment_date < ?", *filter.To)
	}
	return query
}
