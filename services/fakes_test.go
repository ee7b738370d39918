package services

import (
	"HealPing/cache"
	"HealPing/models"
	"HealPing/repositories"
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	c, err := cache.NewCache(client)
	require.NoError(t, err)
	return c, server
}

type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[string]*models.User{}}
}

func (r *fakeUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	u, _ := r.GetUserByEmail(ctx, email)
	return u != nil, nil
}

func (r *fakeUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeUserRepository) UpdateUserPassword(ctx context.Context, userID string, hashedPassword string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Password = hashedPassword
	return nil
}

func (r *fakeUserRepository) MarkEmailVerified(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.EmailVerified = true
	return nil
}

func (r *fakeUserRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	return []models.Role{{Name: models.RoleDoctor}, {Name: models.RoleStaff}, {Name: models.RolePatient}}, nil
}

// fakePatientRepository keeps patients in memory and counts every call.
type fakePatientRepository struct {
	patients map[string]*models.Patient
	calls    int
	createFn func(*models.Patient) error
}

func newFakePatientRepository() *fakePatientRepository {
	return &fakePatientRepository{patients: map[string]*models.Patient{}}
}

func (r *fakePatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	r.calls++
	if r.createFn != nil {
		if err := r.createFn(patient); err != nil {
			return err
		}
	}
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	copied := *patient
	r.patients[patient.ID] = &copied
	return nil
}

func (r *fakePatientRepository) GetByID(ctx context.Context, clinicID, id string) (*models.Patient, error) {
	r.calls++
	if p, ok := r.patients[id]; ok && p.ClinicID == clinicID {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (r *fakePatientRepository) ListByClinic(ctx context.Context, clinicID string) ([]models.Patient, error) {
	r.calls++
	out := []models.Patient{}
	for _, p := range r.patients {
		if p.ClinicID == clinicID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePatientRepository) ListByEmail(ctx context.Context, email string) ([]models.Patient, error) {
	r.calls++
	out := []models.Patient{}
	for _, p := range r.patients {
		if strings.EqualFold(p.Email, email) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	r.calls++
	if _, ok := r.patients[patient.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *patient
	r.patients[patient.ID] = &copied
	return nil
}

func (r *fakePatientRepository) Delete(ctx context.Context, clinicID, id string) error {
	r.calls++
	if p, ok := r.patients[id]; !ok || p.ClinicID != clinicID {
		return gorm.ErrRecordNotFound
	}
	delete(r.patients, id)
	return nil
}

// fakeAppointmentRepository records writes; reads come from appointments.
type fakeAppointmentRepository struct {
	appointments map[string]*models.Appointment
	calls        int
	followFrom   time.Time
	followTo     time.Time
}

func newFakeAppointmentRepository() *fakeAppointmentRepository {
	return &fakeAppointmentRepository{appointments: map[string]*models.Appointment{}}
}

func (r *fakeAppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	r.calls++
	if appointment.ID == "" {
		appointment.ID = uuid.New().String()
	}
	copied := *appointment
	r.appointments[appointment.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepository) GetByID(ctx context.Context, clinicID, id string) (*models.Appointment, error) {
	r.calls++
	if a, ok := r.appointments[id]; ok && a.ClinicID == clinicID {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeAppointmentRepository) List(ctx context.Context, clinicID string, filter repositories.AppointmentFilter) ([]models.Appointment, error) {
	r.calls++
	out := []models.Appointment{}
	for _, a := range r.appointments {
		if a.ClinicID == clinicID && (filter.Status == "" || a.Status == filter.Status) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepository) ListForPatients(ctx context.Context, patientIDs []string) ([]models.Appointment, error) {
	r.calls++
	out := []models.Appointment{}
	for _, a := range r.appointments {
		for _, id := range patientIDs {
			if a.PatientID == id {
				out = append(out, *a)
			}
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepository) ListFollowUps(ctx context.Context, clinicID string, from, to time.Time) ([]models.Appointment, error) {
	r.calls++
	r.followFrom, r.followTo = from, to
	return []models.Appointment{}, nil
}

func (r *fakeAppointmentRepository) Update(ctx context.Context, appointment *models.Appointment) error {
	r.calls++
	copied := *appointment
	r.appointments[appointment.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepository) UpdateStatus(ctx context.Context, clinicID, id, status string) error {
	r.calls++
	a, ok := r.appointments[id]
	if !ok || a.ClinicID != clinicID {
		return gorm.ErrRecordNotFound
	}
	a.Status = status
	return nil
}

func (r *fakeAppointmentRepository) Delete(ctx context.Context, clinicID, id string) error {
	r.calls++
	delete(r.appointments, id)
	return nil
}

type markedResult struct {
	status        string
	failureReason string
	sentAt        *time.Time
}

// fakeReminderRepository serves due from ListDue and records MarkResult calls.
// A claim holds until MarkResult.
type fakeReminderRepository struct {
	reminders map[string]*models.Reminder
	due       []models.Reminder
	marked    map[string]markedResult
	claimed   map[string]bool
}

func newFakeReminderRepository() *fakeReminderRepository {
	return &fakeReminderRepository{
		reminders: map[string]*models.Reminder{},
		marked:    map[string]markedResult{},
		claimed:   map[string]bool{},
	}
}

func (r *fakeReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	copied := *reminder
	r.reminders[reminder.ID] = &copied
	return nil
}

func (r *fakeReminderRepository) GetByID(ctx context.Context, clinicID, id string) (*models.Reminder, error) {
	if rem, ok := r.reminders[id]; ok && rem.ClinicID == clinicID {
		copied := *rem
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeReminderRepository) List(ctx context.Context, clinicID string, filter repositories.ReminderFilter) ([]models.Reminder, error) {
	out := []models.Reminder{}
	for _, rem := range r.reminders {
		if rem.ClinicID == clinicID {
			out = append(out, *rem)
		}
	}
	return out, nil
}

func (r *fakeReminderRepository) ListForAppointments(ctx context.Context, appointmentIDs []string) ([]models.Reminder, error) {
	out := []models.Reminder{}
	for _, rem := range r.reminders {
		for _, id := range appointmentIDs {
			if rem.AppointmentID == id {
				out = append(out, *rem)
			}
		}
	}
	return out, nil
}

func (r *fakeReminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	if len(r.due) > limit {
		return r.due[:limit], nil
	}
	return r.due, nil
}

func (r *fakeReminderRepository) Claim(ctx context.Context, id string, statuses []string, now time.Time, lease time.Duration) (bool, error) {
	if r.claimed[id] {
		return false, nil
	}
	status := models.ReminderPending
	if rem, ok := r.reminders[id]; ok {
		status = rem.Status
	}
	if m, ok := r.marked[id]; ok {
		status = m.status
	}
	if !slices.Contains(statuses, status) {
		return false, nil
	}
	r.claimed[id] = true
	return true, nil
}

func (r *fakeReminderRepository) MarkResult(ctx context.Context, id, status, failureReason string, sentAt *time.Time) error {
	r.marked[id] = markedResult{status: status, failureReason: failureReason, sentAt: sentAt}
	delete(r.claimed, id)
	return nil
}

func (r *fakeReminderRepository) Delete(ctx context.Context, clinicID, id string) error {
	if _, ok := r.reminders[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.reminders, id)
	return nil
}

type sentMessage struct {
	channel, phone, message string
}

type fakeSender struct {
	sent   []sentMessage
	err    error
	onSend func()
}

func (s *fakeSender) SendMessage(ctx context.Context, channel, phone, message string) error {
	if hook := s.onSend; hook != nil {
		s.onSend = nil
		hook()
	}
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{channel, phone, message})
	return nil
}

type fakeMailer struct {
	to    []string
	plain []string
}

func (m *fakeMailer) Send(to, subject, plainBody, htmlBody string) error {
	m.to = append(m.to, to)
	m.plain = append(m.plain, plainBody)
	return nil
}
