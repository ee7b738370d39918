package repositories

import (
	"HealPing/cache"
	"HealPing/models"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ProfileRepository reads and writes profile rows. Profiles are never cached:
// the gate must see a freshly created profile on the next request.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
	AssignClinic(ctx context.Context, profileID, clinicID string) error
	ReleaseClinic(ctx context.Context, profileID, clinicID string) error
	ListStaff(ctx context.Context, clinicID string) ([]models.Profile, error)
}

type profileRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewProfileRepository(db *gorm.DB, cache *cache.Cache) ProfileRepository {
	return &profileRepository{db: db, cache: cache}
}

// GetByUserID returns at most one profile, or nil when the user has none.
func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Limit(1).Find(&profile, "id = ?", userID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile.ID == "" {
		return nil, nil
	}
	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return withLock(ctx, r.cache, fmt.Sprintf("profile_lock:%s", profile.ID), func() error {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", profile.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check profile existence: %w", err)
		}
		if count > 0 {
			return ErrAlreadyExists
		}
		if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
		"full_name": profile.FullName,
		"phone":     profile.Phone,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AssignClinic attaches a staff profile that has no clinic yet. It returns
// ErrAlreadyExists when the profile is not a free staff member.
func (r *profileRepository) AssignClinic(ctx context.Context, profileID, clinicID string) error {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND role = ? AND clinic_id IS NULL", profileID, models.RoleStaff).
		Update("clinic_id", clinicID)
	if result.Error != nil {
		return fmt.Errorf("failed to assign clinic: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// ReleaseClinic detaches a staff profile from clinicID.
func (r *profileRepository) ReleaseClinic(ctx context.Context, profileID, clinicID string) error {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND role = ? AND clinic_id = ?", profileID, models.RoleStaff, clinicID).
		Update("clinic_id", nil)
	if result.Error != nil {
		return fmt.Errorf("failed to release clinic: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *profileRepository) ListStaff(ctx context.Context, clinicID string) ([]models.Profile, error) {
	staff := []models.Profile{}
	err := r.db.WithContext(ctx).
		Where("clinic_id = ? AND role = ?", clinicID, models.RoleStaff).
		Order("full_name ASC").
		Find(&staff).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

// isNotFound reports whether err means the row does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
