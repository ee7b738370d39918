package services

import (
	"HealPing/models"
	"HealPing/repositories"
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ProfileInput is the role selection form sent by a user without a profile.
type ProfileInput struct {
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func (in ProfileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Role, validation.Required, validation.In(stringsToInterfaces(models.Roles)...).Error("must be one of doctor, staff, patient")),
		validation.Field(&in.FullName, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Phone, validation.Length(0, 50)),
	)
}

type ProfileService struct {
	profiles repositories.ProfileRepository
}

func NewProfileService(profiles repositories.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Create stores the profile for userID. A user has at most one profile.
func (s *ProfileService) Create(ctx context.Context, userID string, in ProfileInput) (*models.Profile, error) {
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	profile := &models.Profile{ID: userID, Role: in.Role, FullName: in.FullName, Phone: in.Phone}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, translate(err)
	}
	return profile, nil
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile", ErrNotFound)
	}
	return profile, nil
}

// Update changes the contact details of a profile. The role is fixed once chosen.
func (s *ProfileService) Update(ctx context.Context, userID, fullName, phone string) (*models.Profile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.FullName = strings.TrimSpace(fullName)
	profile.Phone = strings.TrimSpace(phone)

	err = validation.Errors{
		"full_name": validation.Validate(profile.FullName, validation.Required, validation.Length(1, 255)),
		"phone":     validation.Validate(profile.Phone, validation.Length(0, 50)),
	}.Filter()
	if err != nil {
		return nil, invalid(err)
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, translate(err)
	}
	return profile, nil
}

func stringsToInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
