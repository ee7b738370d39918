package services

import (
	"HealPing/models"
	"HealPing/repositories"
	"context"
	"time"
)

// PatientPortal is what a signed-in patient sees: their records in every
// clinic that registered their email.
type PatientPortal struct {
	Patients     []models.Patient     `json:"patients"`
	Appointments []models.Appointment `json:"appointments"`
	Reminders    []models.Reminder    `json:"reminders"`
}

type DashboardService struct {
	stats        repositories.DashboardRepository
	users        repositories.UserRepository
	patients     repositories.PatientRepository
	appointments repositories.AppointmentRepository
	reminders    repositories.ReminderRepository
	now          func() time.Time
}

func NewDashboardService(
	stats repositories.DashboardRepository,
	users repositories.UserRepository,
	patients repositories.PatientRepository,
	appointments repositories.AppointmentRepository,
	reminders repositories.ReminderRepository,
) *DashboardService {
	return &DashboardService{
		stats:        stats,
		users:        users,
		patients:     patients,
		appointments: appointments,
		reminders:    reminders,
		now:          time.Now,
	}
}

func (s *DashboardService) Stats(ctx context.Context, clinicID string) (*repositories.DashboardStats, error) {
	return s.stats.Stats(ctx, clinicID, s.now().UTC())
}

// Portal collects the caller's own appointments and reminders. Patients are
// matched to clinic records by the account email, once that email is verified.
func (s *DashboardService) Portal(ctx context.Context, userID string) (*PatientPortal, error) {
	portal := &PatientPortal{
		Patients:     []models.Patient{},
		Appointments: []models.Appointment{},
		Reminders:    []models.Reminder{},
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	patients, err := s.patients.ListByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if len(patients) == 0 {
		return portal, nil
	}
	portal.Patients = patients

	patientIDs := make([]string, len(patients))
	for i := range patients {
		patientIDs[i] = patients[i].ID
	}
	if portal.Appointments, err = s.appointments.ListForPatients(ctx, patientIDs); err != nil {
		return nil, err
	}

	appointmentIDs := make([]string, len(portal.Appointments))
	for i := range portal.Appointments {
		appointmentIDs[i] = portal.Appointments[i].ID
	}
	if portal.Reminders, err = s.reminders.ListForAppointments(ctx, appointmentIDs); err != nil {
		return nil, err
	}
	return portal, nil
}
