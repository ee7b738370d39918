package repositories

import (
	"HealPing/models"
	"context"
	"fmt"

	"gorm.io/gorm"
)

type ClinicRepository interface {
	CreateForProfile(ctx context.Context, clinic *models.Clinic, profileID string) error
	GetByID(ctx context.Context, id string) (*models.Clinic, error)
	Update(ctx context.Context, clinic *models.Clinic) error
}

type clinicRepository struct {
	db *gorm.DB
}

func NewClinicRepository(db *gorm.DB) ClinicRepository {
	return &clinicRepository{db: db}
}

// CreateForProfile creates the clinic and attaches the profile to it in one transaction.
func (r *clinicRepository) CreateForProfile(ctx context.Context, clinic *models.Clinic, profileID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(clinic).Error; err != nil {
			return fmt.Errorf("failed to create clinic: %w", err)
		}
		result := tx.Model(&models.Profile{}).
			Where("id = ? AND (clinic_id IS NULL OR clinic_id = '')", profileID).
			Update("clinic_id", clinic.ID)
		if result.Error != nil {
			return fmt.Errorf("failed to attach clinic to profile: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyExists
		}
		return nil
	})
}

func (r *clinicRepository) GetByID(ctx context.Context, id string) (*models.Clinic, error) {
	var clinic models.Clinic
	if err := r.db.WithContext(ctx).First(&clinic, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return &clinic, nil
}

func (r *clinicRepository) Update(ctx context.Context, clinic *models.Clinic) error {
	err := r.db.WithContext(ctx).Model(&models.Clinic{}).Where("id = ?", clinic.ID).Updates(map[string]interface{}{
		"name":    clinic.Name,
		"email":   clinic.Email,
		"phone":   clinic.Phone,
		"address": clinic.Address,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update clinic: %w", err)
	}
	return nil
}
