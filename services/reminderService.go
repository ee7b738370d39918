package services

import (
	"HealPing/models"
	"HealPing/repositories"
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
)

const DefaultDispatchBatch = 50

// claimLease bounds how long a reminder stays reserved by one sender.
const claimLease = 5 * time.Minute

type ReminderInput struct {
	AppointmentID  string `json:"appointment_id"`
	ReminderType   string `json:"reminder_type"`
	ScheduledFor   string `json:"scheduled_for"`
	MessageContent string `json:"message_content"`
}

func (in ReminderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.AppointmentID, validation.Required),
		validation.Field(&in.ReminderType, validation.Required, validation.In(stringsToInterfaces(models.ReminderTypes)...).Error("must be one of sms, whatsapp, email, call")),
		validation.Field(&in.ScheduledFor, validation.Required, validation.Date(time.RFC3339).Error("must be an RFC3339 timestamp")),
		validation.Field(&in.MessageContent, validation.Length(0, 1600)),
	)
}

// DispatchResult counts the outcome of one dispatch run.
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type ReminderService struct {
	reminders    repositories.ReminderRepository
	appointments repositories.AppointmentRepository
	notifier     *Notifier
	feed         *ChangeFeed
	now          func() time.Time
}

func NewReminderService(reminders repositories.ReminderRepository, appointments repositories.AppointmentRepository, notifier *Notifier, feed *ChangeFeed) *ReminderService {
	return &ReminderService{reminders: reminders, appointments: appointments, notifier: notifier, feed: feed, now: time.Now}
}

func (s *ReminderService) List(ctx context.Context, clinicID, status, appointmentID string) ([]models.Reminder, error) {
	if status != "" && !models.IsValidReminderStatus(status) {
		return nil, invalidf("status: invalid value %q", status)
	}
	return s.reminders.List(ctx, clinicID, repositories.ReminderFilter{Status: status, AppointmentID: appointmentID})
}

// Create schedules a reminder for an appointment of the clinic. An empty
// message is generated from the appointment.
func (s *ReminderService) Create(ctx context.Context, clinicID string, in ReminderInput) (*models.Reminder, error) {
	in.AppointmentID = strings.TrimSpace(in.AppointmentID)
	in.ReminderType = strings.ToLower(strings.TrimSpace(in.ReminderType))
	in.ScheduledFor = strings.TrimSpace(in.ScheduledFor)
	in.MessageContent = strings.TrimSpace(in.MessageContent)
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	appointment, err := s.appointments.GetByID(ctx, clinicID, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, invalidf("appointment_id: appointment does not belong to this clinic")
	}

	scheduledFor, _ := time.Parse(time.RFC3339, in.ScheduledFor)
	reminder := &models.Reminder{
		AppointmentID:  appointment.ID,
		ClinicID:       clinicID,
		ReminderType:   in.ReminderType,
		ScheduledFor:   scheduledFor.UTC(),
		Status:         models.ReminderPending,
		MessageContent: in.MessageContent,
	}
	if reminder.MessageContent == "" {
		reminder.MessageContent = DefaultReminderMessage(appointment)
	}
	if err := s.reminders.Create(ctx, reminder); err != nil {
		return nil, translate(err)
	}
	s.feed.Publish(ctx, clinicID, "reminders", ActionInsert, reminder.ID)
	return reminder, nil
}

func (s *ReminderService) Get(ctx context.Context, clinicID, id string) (*models.Reminder, error) {
	reminder, err := s.reminders.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if reminder == nil {
		return nil, fmt.Errorf("%w: reminder", ErrNotFound)
	}
	return reminder, nil
}

func (s *ReminderService) Delete(ctx context.Context, clinicID, id string) error {
	if err := s.reminders.Delete(ctx, clinicID, id); err != nil {
		return translate(err)
	}
	s.feed.Publish(ctx, clinicID, "reminders", ActionDelete, id)
	return nil
}

// Send dispatches a reminder now, whatever its schedule. Reminders already
// sent or delivered are left alone.
func (s *ReminderService) Send(ctx context.Context, clinicID, id string) (*models.Reminder, error) {
	reminder, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if reminder.Status == models.ReminderSent || reminder.Status == models.ReminderDelivered {
		return nil, fmt.Errorf("%w: reminder already %s", ErrConflict, reminder.Status)
	}
	claimed, err := s.reminders.Claim(ctx, reminder.ID, []string{models.ReminderPending, models.ReminderFailed}, s.now().UTC(), claimLease)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: reminder is already being sent", ErrConflict)
	}
	if err := s.dispatch(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

// DispatchDue sends up to limit pending reminders whose time has come.
// Reminders claimed by another sender in the meantime are skipped.
func (s *ReminderService) DispatchDue(ctx context.Context, limit int) (DispatchResult, error) {
	if limit <= 0 {
		limit = DefaultDispatchBatch
	}
	var result DispatchResult

	due, err := s.reminders.ListDue(ctx, s.now().UTC(), limit)
	if err != nil {
		return result, err
	}

	for i := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		reminder := &due[i]
		claimed, err := s.reminders.Claim(ctx, reminder.ID, []string{models.ReminderPending}, s.now().UTC(), claimLease)
		if err != nil {
			log.Error().Err(err).Str("reminder_id", reminder.ID).Msg("Failed to claim reminder")
			continue
		}
		if !claimed {
			log.Debug().Str("reminder_id", reminder.ID).Msg("Reminder claimed elsewhere, skipping")
			continue
		}
		if err := s.dispatch(ctx, reminder); err != nil {
			log.Error().Err(err).Str("reminder_id", reminder.ID).Msg("Failed to record reminder result")
			continue
		}
		if reminder.Status == models.ReminderSent {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

// dispatch delivers the reminder and records the outcome on it. The returned
// error only reports a failure to store that outcome.
func (s *ReminderService) dispatch(ctx context.Context, reminder *models.Reminder) error {
	var deliveryErr error
	if reminder.Appointment == nil || reminder.Appointment.Patient == nil {
		deliveryErr = fmt.Errorf("%w: appointment or patient missing", ErrNotFound)
	} else {
		deliveryErr = s.notifier.Deliver(ctx, reminder, reminder.Appointment.Patient)
	}

	if deliveryErr != nil {
		log.Warn().Err(deliveryErr).
			Str("reminder_id", reminder.ID).
			Str("reminder_type", reminder.ReminderType).
			Msg("Reminder delivery failed")
		reminder.Status = models.ReminderFailed
		reminder.FailureReason = deliveryErr.Error()
		reminder.SentAt = nil
	} else {
		sentAt := s.now().UTC()
		reminder.Status = models.ReminderSent
		reminder.FailureReason = ""
		reminder.SentAt = &sentAt
	}

	if err := s.reminders.MarkResult(ctx, reminder.ID, reminder.Status, reminder.FailureReason, reminder.SentAt); err != nil {
		return translate(err)
	}
	s.feed.Publish(ctx, reminder.ClinicID, "reminders", ActionUpdate, reminder.ID)
	return nil
}

// DefaultReminderMessage builds the reminder text for an appointment.
func DefaultReminderMessage(appointment *models.Appointment) string {
	var b strings.Builder
	b.WriteString("Reminder: ")
	if appointment.Patient != nil && appointment.Patient.FullName != "" {
		b.WriteString("Hi " + appointment.Patient.FullName + ", you")
	} else {
		b.WriteString("You")
	}
	b.WriteString(" have ")
	if appointment.TreatmentType != "" {
		b.WriteString("a " + appointment.TreatmentType + " appointment")
	} else {
		b.WriteString("an appointment")
	}
	b.WriteString(" on " + appointment.AppointmentDate.UTC().Format("Mon, Jan 2 2006 at 3:04 PM") + " UTC. ")
	b.WriteString("Please arrive 10 minutes early. If you need to reschedule, please contact us.")
	return b.String()
}
