package services

import (
	"HealPing/models"
	"HealPing/utils"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var (
	ErrChannelDisabled      = errors.New("channel disabled by patient")
	ErrChannelNotConfigured = errors.New("channel not configured")
	ErrMissingContact       = errors.New("patient has no contact for channel")
)

// Notifier delivers a reminder on its channel.
type Notifier struct {
	mailer utils.Mailer
	sender utils.MessageSender
}

// NewNotifier builds a Notifier. A nil mailer or sender leaves that channel unconfigured.
func NewNotifier(mailer utils.Mailer, sender utils.MessageSender) *Notifier {
	return &Notifier{mailer: mailer, sender: sender}
}

// Deliver sends reminder to patient. Call reminders cannot be placed
// automatically; they are queued for the clinic and count as sent.
func (n *Notifier) Deliver(ctx context.Context, reminder *models.Reminder, patient *models.Patient) error {
	if !patient.AllowsChannel(reminder.ReminderType) {
		return ErrChannelDisabled
	}

	switch reminder.ReminderType {
	case models.ReminderEmail:
		if n.mailer == nil {
			return fmt.Errorf("%w: email", ErrChannelNotConfigured)
		}
		if patient.Email == "" {
			return fmt.Errorf("%w: email", ErrMissingContact)
		}
		html, err := utils.RenderEmail("Appointment reminder", "", reminder.MessageContent)
		if err != nil {
			return err
		}
		return n.mailer.Send(patient.Email, "Appointment reminder", reminder.MessageContent, html)

	case models.ReminderSMS, models.ReminderWhatsApp:
		if n.sender == nil {
			return fmt.Errorf("%w: %s", ErrChannelNotConfigured, reminder.ReminderType)
		}
		if patient.Phone == "" {
			return fmt.Errorf("%w: %s", ErrMissingContact, reminder.ReminderType)
		}
		return n.sender.SendMessage(ctx, reminder.ReminderType, patient.Phone, reminder.MessageContent)

	case models.ReminderCall:
		log.Info().
			Str("reminder_id", reminder.ID).
			Str("clinic_id", reminder.ClinicID).
			Str("patient", patient.FullName).
			Str("phone", patient.Phone).
			Msg("Call reminder queued for clinic")
		return nil
	}
	return fmt.Errorf("unknown reminder type %q", reminder.ReminderType)
}
