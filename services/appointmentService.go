package services

import (
	"HealPing/models"
	"HealPing/repositories"
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultFollowUpDays = 7
	maxFollowUpDays     = 365
)

// AppointmentInput is the appointment form. Dates are RFC3339; the follow-up
// date also accepts YYYY-MM-DD.
type AppointmentInput struct {
	PatientID       string  `json:"patient_id"`
	DoctorID        string  `json:"doctor_id"`
	AppointmentDate string  `json:"appointment_date"`
	FollowUpDate    *string `json:"follow_up_date"`
	Status          string  `json:"status"`
	TreatmentType   string  `json:"treatment_type"`
	Notes           string  `json:"notes"`
}

func (in AppointmentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.PatientID, validation.Required),
		validation.Field(&in.DoctorID, validation.Required.Error("doctor is required")),
		validation.Field(&in.AppointmentDate, validation.Required, validation.Date(time.RFC3339).Error("must be an RFC3339 timestamp")),
		validation.Field(&in.Status, validation.In(stringsToInterfaces(models.AppointmentStatuses)...).Error("must be one of scheduled, completed, cancelled, no_show")),
		validation.Field(&in.TreatmentType, validation.Length(0, 255)),
	)
}

// AppointmentQuery holds the raw listing filters.
type AppointmentQuery struct {
	Status    string
	PatientID string
	From      string
	To        string
}

type AppointmentService struct {
	appointments repositories.AppointmentRepository
	patients     repositories.PatientRepository
	profiles     ProfileFinder
	feed         *ChangeFeed
	now          func() time.Time
}

func NewAppointmentService(appointments repositories.AppointmentRepository, patients repositories.PatientRepository, profiles ProfileFinder, feed *ChangeFeed) *AppointmentService {
	return &AppointmentService{appointments: appointments, patients: patients, profiles: profiles, feed: feed, now: time.Now}
}

func (s *AppointmentService) List(ctx context.Context, clinicID string, q AppointmentQuery) ([]models.Appointment, error) {
	filter := repositories.AppointmentFilter{Status: q.Status, PatientID: q.PatientID}
	if q.Status != "" && !models.IsValidAppointmentStatus(q.Status) {
		return nil, invalidf("status: invalid value %q", q.Status)
	}
	var err error
	if filter.From, err = parseOptionalTime("from", q.From); err != nil {
		return nil, err
	}
	if filter.To, err = parseOptionalTime("to", q.To); err != nil {
		return nil, err
	}
	return s.appointments.List(ctx, clinicID, filter)
}

// Create books an appointment. A doctor books for themself; other roles name the doctor.
func (s *AppointmentService) Create(ctx context.Context, caller *models.Profile, in AppointmentInput) (*models.Appointment, error) {
	clinicID := clinicOf(caller)
	if caller.Role == models.RoleDoctor {
		in.DoctorID = caller.ID
	}

	appointment := &models.Appointment{ClinicID: clinicID}
	if err := s.fill(ctx, appointment, in); err != nil {
		return nil, err
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, translate(err)
	}
	s.feed.Publish(ctx, clinicID, "appointments", ActionInsert, appointment.ID)
	return appointment, nil
}

func (s *AppointmentService) Get(ctx context.Context, clinicID, id string) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, fmt.Errorf("%w: appointment", ErrNotFound)
	}
	return appointment, nil
}

func (s *AppointmentService) Update(ctx context.Context, caller *models.Profile, id string, in AppointmentInput) (*models.Appointment, error) {
	clinicID := clinicOf(caller)
	appointment, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if in.DoctorID == "" {
		in.DoctorID = appointment.DoctorID
	}
	if in.Status == "" {
		in.Status = appointment.Status
	}

	if err := s.fill(ctx, appointment, in); err != nil {
		return nil, err
	}
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, translate(err)
	}
	s.feed.Publish(ctx, clinicID, "appointments", ActionUpdate, appointment.ID)
	return appointment, nil
}

// UpdateStatus rejects anything outside the four statuses before writing.
func (s *AppointmentService) UpdateStatus(ctx context.Context, clinicID, id, status string) error {
	status = strings.TrimSpace(status)
	if !models.IsValidAppointmentStatus(status) {
		return invalidf("status: invalid value %q", status)
	}
	if err := s.appointments.UpdateStatus(ctx, clinicID, id, status); err != nil {
		return translate(err)
	}
	s.feed.Publish(ctx, clinicID, "appointments", ActionUpdate, id)
	return nil
}

// Delete removes the appointment and its reminders.
func (s *AppointmentService) Delete(ctx context.Context, clinicID, id string) error {
	if err := s.appointments.Delete(ctx, clinicID, id); err != nil {
		return translate(err)
	}
	s.feed.Publish(ctx, clinicID, "appointments", ActionDelete, id)
	return nil
}

// FollowUps lists appointments with a follow-up in the next days days.
func (s *AppointmentService) FollowUps(ctx context.Context, clinicID string, days int) ([]models.Appointment, error) {
	if days <= 0 {
		days = DefaultFollowUpDays
	}
	if days > maxFollowUpDays {
		return nil, invalidf("days: must be at most %d", maxFollowUpDays)
	}
	now := s.now().UTC()
	return s.appointments.ListFollowUps(ctx, clinicID, now, now.AddDate(0, 0, days))
}

func (s *AppointmentService) fill(ctx context.Context, appointment *models.Appointment, in AppointmentInput) error {
	in.PatientID = strings.TrimSpace(in.PatientID)
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.AppointmentDate = strings.TrimSpace(in.AppointmentDate)
	in.Status = strings.TrimSpace(in.Status)
	if err := in.Validate(); err != nil {
		return invalid(err)
	}

	date, _ := time.Parse(time.RFC3339, in.AppointmentDate)
	var followUp *time.Time
	if in.FollowUpDate != nil && strings.TrimSpace(*in.FollowUpDate) != "" {
		t, err := parseFlexibleTime(strings.TrimSpace(*in.FollowUpDate))
		if err != nil {
			return invalidf("follow_up_date: %v", err)
		}
		followUp = &t
	}

	patient, err := s.patients.GetByID(ctx, appointment.ClinicID, in.PatientID)
	if err != nil {
		return err
	}
	if patient == nil {
		return invalidf("patient_id: patient does not belong to this clinic")
	}
	if err := s.checkDoctor(ctx, appointment.ClinicID, in.DoctorID); err != nil {
		return err
	}

	appointment.PatientID = in.PatientID
	appointment.DoctorID = in.DoctorID
	appointment.AppointmentDate = date.UTC()
	appointment.FollowUpDate = followUp
	appointment.Status = in.Status
	if appointment.Status == "" {
		appointment.Status = models.AppointmentScheduled
	}
	appointment.TreatmentType = strings.TrimSpace(in.TreatmentType)
	appointment.Notes = in.Notes
	appointment.Patient = patient
	return nil
}

// checkDoctor requires doctorID to be a doctor of the clinic.
func (s *AppointmentService) checkDoctor(ctx context.Context, clinicID, doctorID string) error {
	doctor, err := s.profiles.GetByUserID(ctx, doctorID)
	if err != nil {
		return err
	}
	if doctor == nil || doctor.Role != models.RoleDoctor || !doctor.HasClinic() || *doctor.ClinicID != clinicID {
		return invalidf("doctor_id: not a doctor of this clinic")
	}
	return nil
}

func clinicOf(profile *models.Profile) string {
	if profile == nil || profile.ClinicID == nil {
		return ""
	}
	return *profile.ClinicID
}

func parseOptionalTime(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := parseFlexibleTime(value)
	if err != nil {
		return nil, invalidf("%s: %v", field, err)
	}
	return &t, nil
}

// parseFlexibleTime accepts an RFC3339 timestamp or a YYYY-MM-DD date, in UTC.
func parseFlexibleTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", value)
	}
	return t.UTC(), nil
}
