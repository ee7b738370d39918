package services

import (
	"HealPing/models"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dispatchNow = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

func dueReminder(id, reminderType string, patient *models.Patient) models.Reminder {
	return models.Reminder{
		ID:             id,
		ClinicID:       "clinic-1",
		ReminderType:   reminderType,
		Status:         models.ReminderPending,
		ScheduledFor:   dispatchNow.Add(-time.Minute),
		MessageContent: "See you tomorrow",
		Appointment: &models.Appointment{
			ID:              "appt-" + id,
			ClinicID:        "clinic-1",
			AppointmentDate: dispatchNow.Add(24 * time.Hour),
			Patient:         patient,
		},
	}
}

func TestDispatchDue(t *testing.T) {
	reminders := newFakeReminderRepository()
	sender := &fakeSender{}
	mailer := &fakeMailer{}
	service := NewReminderService(reminders, newFakeAppointmentRepository(), NewNotifier(mailer, sender), nil)
	service.now = func() time.Time { return dispatchNow }

	smsPatient := &models.Patient{FullName: "Ann", Phone: "555-0100", SMSEnabled: true}
	optedOut := &models.Patient{FullName: "Bob", Phone: "555-0101", SMSEnabled: false}
	emailPatient := &models.Patient{FullName: "Cat", Phone: "555-0102", Email: "cat@example.com", EmailEnabled: true}
	reminders.due = []models.Reminder{
		dueReminder("r1", models.ReminderSMS, smsPatient),
		dueReminder("r2", models.ReminderSMS, optedOut),
		dueReminder("r3", models.ReminderCall, optedOut),
		dueReminder("r4", models.ReminderEmail, emailPatient),
		dueReminder("r5", models.ReminderWhatsApp, smsPatient),
	}

	result, err := service.DispatchDue(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DispatchResult{Sent: 3, Failed: 2}, result)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, sentMessage{models.ReminderSMS, "555-0100", "See you tomorrow"}, sender.sent[0])
	assert.Equal(t, []string{"cat@example.com"}, mailer.to)

	assert.Equal(t, models.ReminderSent, reminders.marked["r1"].status)
	require.NotNil(t, reminders.marked["r1"].sentAt)
	assert.Equal(t, dispatchNow, *reminders.marked["r1"].sentAt)

	assert.Equal(t, models.ReminderFailed, reminders.marked["r2"].status)
	assert.Equal(t, "channel disabled by patient", reminders.marked["r2"].failureReason)
	assert.Nil(t, reminders.marked["r2"].sentAt)

	assert.Equal(t, models.ReminderSent, reminders.marked["r3"].status, "calls are always allowed")
	assert.Equal(t, models.ReminderSent, reminders.marked["r4"].status)
	assert.Equal(t, models.ReminderFailed, reminders.marked["r5"].status, "whatsapp not enabled")
}

func TestDispatchRecordsGatewayFailure(t *testing.T) {
	reminders := newFakeReminderRepository()
	sender := &fakeSender{err: errors.New("gateway returned status 502")}
	service := NewReminderService(reminders, newFakeAppointmentRepository(), NewNotifier(nil, sender), nil)
	service.now = func() time.Time { return dispatchNow }

	patient := &models.Patient{FullName: "Ann", Phone: "555-0100", SMSEnabled: true, EmailEnabled: true, Email: "ann@example.com"}
	reminders.due = []models.Reminder{
		dueReminder("r1", models.ReminderSMS, patient),
		dueReminder("r2", models.ReminderEmail, patient),
		dueReminder("r3", models.ReminderSMS, nil),
	}

	result, err := service.DispatchDue(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, DispatchResult{Sent: 0, Failed: 3}, result)
	assert.Contains(t, reminders.marked["r1"].failureReason, "502")
	assert.Contains(t, reminders.marked["r2"].failureReason, "channel not configured")
	assert.Contains(t, reminders.marked["r3"].failureReason, "not found")
}

func TestSendRefusesDeliveredReminder(t *testing.T) {
	reminders := newFakeReminderRepository()
	service := NewReminderService(reminders, newFakeAppointmentRepository(), NewNotifier(nil, &fakeSender{}), nil)

	reminders.reminders["r1"] = &models.Reminder{ID: "r1", ClinicID: "clinic-1", ReminderType: models.ReminderSMS, Status: models.ReminderSent}

	_, err := service.Send(context.Background(), "clinic-1", "r1")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = service.Send(context.Background(), "clinic-2", "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManualSendDuringDispatchDeliversOnce(t *testing.T) {
	reminders := newFakeReminderRepository()
	sender := &fakeSender{}
	service := NewReminderService(reminders, newFakeAppointmentRepository(), NewNotifier(nil, sender), nil)
	service.now = func() time.Time { return dispatchNow }
	ctx := context.Background()

	patient := &models.Patient{FullName: "Ann", Phone: "555-0100", SMSEnabled: true}
	due := dueReminder("r1", models.ReminderSMS, patient)
	stored := due
	reminders.reminders["r1"] = &stored
	reminders.due = []models.Reminder{due}

	var manualErr error
	sender.onSend = func() {
		_, manualErr = service.Send(ctx, "clinic-1", "r1")
	}

	result, err := service.DispatchDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, DispatchResult{Sent: 1}, result)
	assert.ErrorIs(t, manualErr, ErrConflict)
	assert.Len(t, sender.sent, 1)

	_, err = service.Send(ctx, "clinic-1", "r1")
	assert.ErrorIs(t, err, ErrConflict, "already sent")
	assert.Len(t, sender.sent, 1)
}

func TestDispatchSkipsClaimedReminder(t *testing.T) {
	reminders := newFakeReminderRepository()
	sender := &fakeSender{}
	service := NewReminderService(reminders, newFakeAppointmentRepository(), NewNotifier(nil, sender), nil)
	service.now = func() time.Time { return dispatchNow }

	patient := &models.Patient{FullName: "Ann", Phone: "555-0100", SMSEnabled: true}
	reminders.due = []models.Reminder{dueReminder("r1", models.ReminderSMS, patient), dueReminder("r2", models.ReminderSMS, patient)}
	reminders.claimed["r1"] = true

	result, err := service.DispatchDue(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, DispatchResult{Sent: 1}, result)
	assert.Len(t, sender.sent, 1)
	assert.NotContains(t, reminders.marked, "r1")
}

func TestSendRetriesFailedReminder(t *testing.T) {
	reminders := newFakeReminderRepository()
	sender := &fakeSender{}
	service := NewReminderService(reminders, newFakeAppointmentRepository(), NewNotifier(nil, sender), nil)
	service.now = func() time.Time { return dispatchNow }

	failed := dueReminder("r1", models.ReminderSMS, &models.Patient{Phone: "555-0100", SMSEnabled: true})
	failed.Status = models.ReminderFailed
	reminders.reminders["r1"] = &failed

	reminder, err := service.Send(context.Background(), "clinic-1", "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ReminderSent, reminder.Status)
	assert.Len(t, sender.sent, 1)
}

func TestReminderCreate(t *testing.T) {
	reminders := newFakeReminderRepository()
	appointments := newFakeAppointmentRepository()
	service := NewReminderService(reminders, appointments, NewNotifier(nil, nil), nil)
	ctx := context.Background()

	appointments.appointments["appt-1"] = &models.Appointment{
		ID:              "appt-1",
		ClinicID:        "clinic-1",
		AppointmentDate: time.Date(2030, 1, 2, 15, 4, 0, 0, time.UTC),
		TreatmentType:   "Physiotherapy",
		Patient:         &models.Patient{FullName: "Ann Lee"},
	}

	reminder, err := service.Create(ctx, "clinic-1", ReminderInput{
		AppointmentID: "appt-1",
		ReminderType:  " SMS ",
		ScheduledFor:  "2030-01-01T15:04:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReminderSMS, reminder.ReminderType)
	assert.Equal(t, models.ReminderPending, reminder.Status)
	assert.Contains(t, reminder.MessageContent, "Hi Ann Lee")
	assert.Contains(t, reminder.MessageContent, "a Physiotherapy appointment")

	_, err = service.Create(ctx, "clinic-1", ReminderInput{AppointmentID: "appt-1", ReminderType: "pigeon", ScheduledFor: "2030-01-01T15:04:00Z"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.Create(ctx, "clinic-2", ReminderInput{AppointmentID: "appt-1", ReminderType: "sms", ScheduledFor: "2030-01-01T15:04:00Z"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDefaultReminderMessage(t *testing.T) {
	appointment := &models.Appointment{AppointmentDate: time.Date(2030, 1, 2, 15, 4, 0, 0, time.UTC)}
	assert.Equal(t,
		"Reminder: You have an appointment on Wed, Jan 2 2030 at 3:04 PM UTC. Please arrive 10 minutes early. If you need to reschedule, please contact us.",
		DefaultReminderMessage(appointment))
}
