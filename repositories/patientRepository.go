package repositories

import (
	"HealPing/cache"
	"HealPing/models"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	PatientCacheExpiry = 7 * 24 * time.Hour
)

type PatientRepository interface {
	Create(ctx context.Context, patient *models.Patient) error
	GetByID(ctx context.Context, clinicID, id string) (*models.Patient, error)
	ListByClinic(ctx context.Context, clinicID string) ([]models.Patient, error)
	ListByEmail(ctx context.Context, email string) ([]models.Patient, error)
	Update(ctx context.Context, patient *models.Patient) error
	Delete(ctx context.Context, clinicID, id string) error
}

type patientRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewPatientRepository(db *gorm.DB, cache *cache.Cache) PatientRepository {
	return &patientRepository{db: db, cache: cache}
}

// Create inserts a patient. Two patients of the same clinic may not share a phone number.
func (r *patientRepository) Create(ctx context.Context, patient *models.Patient) error {
	err := withLock(ctx, r.cache, r.getPatientLockKey(patient.ClinicID, patient.Phone), func() error {
		if err := r.checkPhoneFree(ctx, patient); err != nil {
			return err
		}
		if err := r.db.WithContext(ctx).Create(patient).Error; err != nil {
			return fmt.Errorf("failed to create patient: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidate(ctx, patient.ClinicID, patient.ID)
	return nil
}

func (r *patientRepository) GetByID(ctx context.Context, clinicID, id string) (*models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := r.getPatientCacheKey(id)
	if cached, err := r.cache.Get(ctx, cacheKey); err != nil {
		log.Warn().Err(err).Msg("Failed to get patient from cache")
	} else if cached != "" {
		var patient models.Patient
		if err := json.Unmarshal([]byte(cached), &patient); err == nil && patient.ClinicID == clinicID {
			return &patient, nil
		}
	}

	var patient models.Patient
	err := r.db.WithContext(ctx).First(&patient, "id = ? AND clinic_id = ?", id, clinicID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	r.store(ctx, cacheKey, patient)
	return &patient, nil
}

// ListByClinic returns the clinic's patients ordered by name.
func (r *patientRepository) ListByClinic(ctx context.Context, clinicID string) ([]models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := r.getPatientsCacheKey(clinicID)
	if cached, err := r.cache.Get(ctx, cacheKey); err != nil {
		log.Warn().Err(err).Msg("Failed to get patients from cache")
	} else if cached != "" {
		var patients []models.Patient
		if err := json.Unmarshal([]byte(cached), &patients); err == nil {
			return patients, nil
		}
	}

	patients := []models.Patient{}
	err := r.db.WithContext(ctx).
		Where("clinic_id = ?", clinicID).
		Order("full_name ASC").
		Find(&patients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	r.store(ctx, cacheKey, patients)
	return patients, nil
}

// ListByEmail returns the patient records, across clinics, registered with email.
func (r *patientRepository) ListByEmail(ctx context.Context, email string) ([]models.Patient, error) {
	patients := []models.Patient{}
	if strings.TrimSpace(email) == "" {
		return patients, nil
	}
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Find(&patients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list patients by email: %w", err)
	}
	return patients, nil
}

// Update rewrites the patient's details under the same phone rule as Create.
func (r *patientRepository) Update(ctx context.Context, patient *models.Patient) error {
	err := withLock(ctx, r.cache, r.getPatientLockKey(patient.ClinicID, patient.Phone), func() error {
		if err := r.checkPhoneFree(ctx, patient); err != nil {
			return err
		}
		result := r.db.WithContext(ctx).Model(&models.Patient{}).
			Where("id = ? AND clinic_id = ?", patient.ID, patient.ClinicID).
			Updates(map[string]interface{}{
				"full_name":        patient.FullName,
				"phone":            patient.Phone,
				"email":            patient.Email,
				"date_of_birth":    patient.DateOfBirth,
				"sms_enabled":      patient.SMSEnabled,
				"email_enabled":    patient.EmailEnabled,
				"whatsapp_enabled": patient.WhatsAppEnabled,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update patient: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidate(ctx, patient.ClinicID, patient.ID)
	return nil
}

// checkPhoneFree fails with ErrAlreadyExists when another patient of the
// clinic already uses the phone number.
func (r *patientRepository) checkPhoneFree(ctx context.Context, patient *models.Patient) error {
	query := r.db.WithContext(ctx).Model(&models.Patient{}).
		Where("clinic_id = ? AND phone = ?", patient.ClinicID, patient.Phone)
	if patient.ID != "" {
		query = query.Where("id <> ?", patient.ID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check patient existence: %w", err)
	}
	if count > 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Delete removes the patient together with its appointments and their reminders.
func (r *patientRepository) Delete(ctx context.Context, clinicID, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appointmentIDs := tx.Model(&models.Appointment{}).Select("id").Where("patient_id = ? AND clinic_id = ?", id, clinicID)
		if err := tx.Where("appointment_id IN (?)", appointmentIDs).Delete(&models.Reminder{}).Error; err != nil {
			return fmt.Errorf("failed to delete reminders: %w", err)
		}
		if err := tx.Where("patient_id = ? AND clinic_id = ?", id, clinicID).Delete(&models.Appointment{}).Error; err != nil {
			return fmt.Errorf("failed to delete appointments: %w", err)
		}
		result := tx.Where("id = ? AND clinic_id = ?", id, clinicID).Delete(&models.Patient{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete patient: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidate(ctx, clinicID, id)
	return nil
}

func (r *patientRepository) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to marshal cache entry")
		return
	}
	if err := r.cache.Set(ctx, key, data, PatientCacheExpiry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to set cache entry")
	}
}

// invalidate drops the cached patient and clinic list. The write has already
// committed, so a failure is only logged.
func (r *patientRepository) invalidate(ctx context.Context, clinicID, id string) {
	if err := r.cache.DeleteBatch(ctx, r.getPatientCacheKey(id), r.getPatientsCacheKey(clinicID)); err != nil {
		log.Warn().Err(err).Str("patient_id", id).Msg("Failed to delete patient cache")
	}
}

func (r *patientRepository) getPatientLockKey(clinicID, phone string) string {
	return fmt.Sprintf("patient_lock:%s_%s", clinicID, phone)
}

func (r *patientRepository) getPatientCacheKey(id string) string {
	return fmt.Sprintf("patient_cache:%s", id)
}

func (r *patientRepository) getPatientsCacheKey(clinicID string) string {
	return fmt.Sprintf("patients_cache:%s", clinicID)
}
