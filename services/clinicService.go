package services

import (
	"HealPing/models"
	"HealPing/repositories"
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type ClinicInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (in ClinicInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Email, is.EmailFormat),
		validation.Field(&in.Phone, validation.Length(0, 50)),
	)
}

func (in *ClinicInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
}

type ClinicService struct {
	clinics  repositories.ClinicRepository
	profiles repositories.ProfileRepository
	users    repositories.UserRepository
}

func NewClinicService(clinics repositories.ClinicRepository, profiles repositories.ProfileRepository, users repositories.UserRepository) *ClinicService {
	return &ClinicService{clinics: clinics, profiles: profiles, users: users}
}

// Register creates a clinic for a doctor who does not have one yet.
func (s *ClinicService) Register(ctx context.Context, profile *models.Profile, in ClinicInput) (*models.Clinic, error) {
	if profile.Role != models.RoleDoctor {
		return nil, fmt.Errorf("%w: only doctors can register a clinic", ErrForbidden)
	}
	if profile.HasClinic() {
		return nil, fmt.Errorf("%w: profile already belongs to a clinic", ErrConflict)
	}

	in.trim()
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	clinic := &models.Clinic{Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address}
	if err := s.clinics.CreateForProfile(ctx, clinic, profile.ID); err != nil {
		return nil, translate(err)
	}
	profile.ClinicID = &clinic.ID
	return clinic, nil
}

func (s *ClinicService) Get(ctx context.Context, clinicID string) (*models.Clinic, error) {
	clinic, err := s.clinics.GetByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	if clinic == nil {
		return nil, fmt.Errorf("%w: clinic", ErrNotFound)
	}
	return clinic, nil
}

func (s *ClinicService) Update(ctx context.Context, clinicID string, in ClinicInput) (*models.Clinic, error) {
	clinic, err := s.Get(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	in.trim()
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	clinic.Name, clinic.Email, clinic.Phone, clinic.Address = in.Name, in.Email, in.Phone, in.Address
	if err := s.clinics.Update(ctx, clinic); err != nil {
		return nil, translate(err)
	}
	return clinic, nil
}

// AddStaff attaches the staff member signed up under email to the clinic.
// Staff belong to at most one clinic.
func (s *ClinicService) AddStaff(ctx context.Context, clinicID, email string) (*models.Profile, error) {
	email = normalizeEmail(email)
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return nil, invalid(validation.Errors{"email": err})
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: no account registered with this email", ErrNotFound)
	}
	profile, err := s.profiles.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.Role != models.RoleStaff {
		return nil, invalidf("email: account has no staff profile")
	}
	if profile.HasClinic() {
		if *profile.ClinicID == clinicID {
			return profile, nil
		}
		return nil, fmt.Errorf("%w: staff member already belongs to a clinic", ErrConflict)
	}

	if err := s.profiles.AssignClinic(ctx, profile.ID, clinicID); err != nil {
		return nil, translate(err)
	}
	profile.ClinicID = &clinicID
	return profile, nil
}

func (s *ClinicService) ListStaff(ctx context.Context, clinicID string) ([]models.Profile, error) {
	return s.profiles.ListStaff(ctx, clinicID)
}

func (s *ClinicService) RemoveStaff(ctx context.Context, clinicID, profileID string) error {
	return translate(s.profiles.ReleaseClinic(ctx, profileID, clinicID))
}
