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

const dateLayout = "2006-01-02"

// PatientInput is the patient form. Nil preferences take their defaults:
// sms on, email and whatsapp off.
type PatientInput struct {
	FullName        string `json:"full_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	DateOfBirth     string `json:"date_of_birth"`
	SMSEnabled      *bool  `json:"sms_enabled"`
	EmailEnabled    *bool  `json:"email_enabled"`
	WhatsAppEnabled *bool  `json:"whatsapp_enabled"`
}

func (in PatientInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FullName, validation.Required.Error("full name is required"), validation.Length(1, 255)),
		validation.Field(&in.Phone, validation.Required.Error("phone is required"), validation.Length(1, 50)),
		validation.Field(&in.Email, is.EmailFormat),
		validation.Field(&in.DateOfBirth, validation.Date(dateLayout).Error("must be a date in YYYY-MM-DD format")),
	)
}

func (in *PatientInput) trim() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)
}

// apply copies the input onto patient. Preferences left nil keep the current value.
func (in PatientInput) apply(patient *models.Patient) {
	patient.FullName = in.FullName
	patient.Phone = in.Phone
	patient.Email = in.Email
	patient.DateOfBirth = in.DateOfBirth
	if in.SMSEnabled != nil {
		patient.SMSEnabled = *in.SMSEnabled
	}
	if in.EmailEnabled != nil {
		patient.EmailEnabled = *in.EmailEnabled
	}
	if in.WhatsAppEnabled != nil {
		patient.WhatsAppEnabled = *in.WhatsAppEnabled
	}
}

type PatientService struct {
	patients repositories.PatientRepository
	feed     *ChangeFeed
}

func NewPatientService(patients repositories.PatientRepository, feed *ChangeFeed) *PatientService {
	return &PatientService{patients: patients, feed: feed}
}

// List returns the clinic's patients ordered by name, filtered by query.
func (s *PatientService) List(ctx context.Context, clinicID, query string) ([]models.Patient, error) {
	patients, err := s.patients.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	return models.FilterPatients(patients, query), nil
}

// Create validates the form before anything reaches storage.
func (s *PatientService) Create(ctx context.Context, clinicID string, in PatientInput) (*models.Patient, error) {
	in.trim()
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	patient := &models.Patient{ClinicID: clinicID, SMSEnabled: true}
	in.apply(patient)
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, translate(err)
	}
	s.feed.Publish(ctx, clinicID, "patients", ActionInsert, patient.ID)
	return patient, nil
}

func (s *PatientService) Get(ctx context.Context, clinicID, id string) (*models.Patient, error) {
	patient, err := s.patients.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, fmt.Errorf("%w: patient", ErrNotFound)
	}
	return patient, nil
}

func (s *PatientService) Update(ctx context.Context, clinicID, id string, in PatientInput) (*models.Patient, error) {
	in.trim()
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	patient, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	in.apply(patient)
	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, translate(err)
	}
	s.feed.Publish(ctx, clinicID, "patients", ActionUpdate, patient.ID)
	return patient, nil
}

// Delete removes the patient together with its appointments and reminders.
func (s *PatientService) Delete(ctx context.Context, clinicID, id string) error {
	if err := s.patients.Delete(ctx, clinicID, id); err != nil {
		return translate(err)
	}
	s.feed.Publish(ctx, clinicID, "patients", ActionDelete, id)
	return nil
}

// ForEmail returns every patient record, across clinics, registered with email.
func (s *PatientService) ForEmail(ctx context.Context, email string) ([]models.Patient, error) {
	if strings.TrimSpace(email) == "" {
		return []models.Patient{}, nil
	}
	return s.patients.ListByEmail(ctx, email)
}
