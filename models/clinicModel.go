package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Appointment statuses
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

// AppointmentStatuses is the closed set of values an appointment status may take.
var AppointmentStatuses = []string{AppointmentScheduled, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow}

// Reminder channels
const (
	ReminderSMS      = "sms"
	ReminderWhatsApp = "whatsapp"
	ReminderEmail    = "email"
	ReminderCall     = "call"
)

var ReminderTypes = []string{ReminderSMS, ReminderWhatsApp, ReminderEmail, ReminderCall}

// Reminder statuses
const (
	ReminderPending   = "pending"
	ReminderSent      = "sent"
	ReminderDelivered = "delivered"
	ReminderFailed    = "failed"
)

var ReminderStatuses = []string{ReminderPending, ReminderSent, ReminderDelivered, ReminderFailed}

// Clinic model
type Clinic struct {
	ID        string    `gorm:"primaryKey;size:36;column:id" json:"id"`
	Name      string    `gorm:"size:255;not null;column:name" json:"name"`
	Email     string    `gorm:"size:255;column:email" json:"email"`
	Phone     string    `gorm:"size:50;column:phone" json:"phone"`
	Address   string    `gorm:"column:address" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	Patients  []Patient `gorm:"foreignKey:ClinicID;references:ID" json:"-"`
}

func (Clinic) TableName() string {
	return "clinics"
}

func (c *Clinic) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Patient model
type Patient struct {
	ID              string        `gorm:"primaryKey;size:36;column:id" json:"id"`
	ClinicID        string        `gorm:"size:36;not null;index;column:clinic_id" json:"clinic_id"`
	FullName        string        `gorm:"size:255;not null;index;column:full_name" json:"full_name"`
	Phone           string        `gorm:"size:50;not null;column:phone" json:"phone"`
	Email           string        `gorm:"size:255;column:email" json:"email"`
	DateOfBirth     string        `gorm:"size:10;column:date_of_birth" json:"date_of_birth"`
	SMSEnabled      bool          `gorm:"column:sms_enabled;not null" json:"sms_enabled"`
	EmailEnabled    bool          `gorm:"column:email_enabled;not null" json:"email_enabled"`
	WhatsAppEnabled bool          `gorm:"column:whatsapp_enabled;not null" json:"whatsapp_enabled"`
	CreatedAt       time.Time     `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	Appointments    []Appointment `gorm:"foreignKey:PatientID;references:ID" json:"-"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// AllowsChannel reports whether the patient accepts reminders on the given channel.
// Calls are always allowed.
func (p *Patient) AllowsChannel(reminderType string) bool {
	switch reminderType {
	case ReminderSMS:
		return p.SMSEnabled
	case ReminderEmail:
		return p.EmailEnabled
	case ReminderWhatsApp:
		return p.WhatsAppEnabled
	case ReminderCall:
		return true
	}
	return false
}

// MatchesQuery reports whether the patient matches a search query: a
// case-insensitive substring of the full name, or a substring of the phone or
// email. An empty query matches everything.
func (p *Patient) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.FullName), q) ||
		strings.Contains(p.Phone, q) ||
		strings.Contains(strings.ToLower(p.Email), q)
}

// FilterPatients returns the patients matching query, preserving order.
func FilterPatients(patients []Patient, query string) []Patient {
	filtered := make([]Patient, 0, len(patients))
	for i := range patients {
		if patients[i].MatchesQuery(query) {
			filtered = append(filtered, patients[i])
		}
	}
	return filtered
}

// Appointment model
type Appointment struct {
	ID              string     `gorm:"primaryKey;size:36;column:id" json:"id"`
	PatientID       string     `gorm:"size:36;not null;index;column:patient_id" json:"patient_id"`
	DoctorID        string     `gorm:"size:36;not null;index;column:doctor_id" json:"doctor_id"`
	ClinicID        string     `gorm:"size:36;not null;index;column:clinic_id" json:"clinic_id"`
	AppointmentDate time.Time  `gorm:"not null;index;column:appointment_date" json:"appointment_date"`
	FollowUpDate    *time.Time `gorm:"index;column:follow_up_date" json:"follow_up_date"`
	Status          string     `gorm:"size:20;not null;column:status;check:status IN ('scheduled', 'completed', 'cancelled', 'no_show')" json:"status"`
	TreatmentType   string     `gorm:"size:255;column:treatment_type" json:"treatment_type"`
	Notes           string     `gorm:"type:text;column:notes" json:"notes"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	Patient         *Patient   `gorm:"foreignKey:PatientID;references:ID" json:"patient,omitempty"`
	Reminders       []Reminder `gorm:"foreignKey:AppointmentID;references:ID" json:"-"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// IsValidAppointmentStatus reports whether status is one of AppointmentStatuses.
func IsValidAppointmentStatus(status string) bool {
	return contains(AppointmentStatuses, status)
}

// Reminder model
type Reminder struct {
	ID             string       `gorm:"primaryKey;size:36;column:id" json:"id"`
	AppointmentID  string       `gorm:"size:36;not null;index;column:appointment_id" json:"appointment_id"`
	ClinicID       string       `gorm:"size:36;not null;index;column:clinic_id" json:"clinic_id"`
	ReminderType   string       `gorm:"size:20;not null;column:reminder_type;check:reminder_type IN ('sms', 'whatsapp', 'email', 'call')" json:"reminder_type"`
	ScheduledFor   time.Time    `gorm:"not null;index;column:scheduled_for" json:"scheduled_for"`
	Status         string       `gorm:"size:20;not null;index;column:status;check:status IN ('pending', 'sent', 'delivered', 'failed')" json:"status"`
	MessageContent string       `gorm:"type:text;column:message_content" json:"message_content"`
	SentAt         *time.Time   `gorm:"column:sent_at" json:"sent_at"`
	FailureReason  string       `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	ClaimedUntil   *time.Time   `gorm:"index;column:claimed_until" json:"-"`
	CreatedAt      time.Time    `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	Appointment    *Appointment `gorm:"foreignKey:AppointmentID;references:ID" json:"appointment,omitempty"`
}

func (Reminder) TableName() string {
	return "reminders"
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func IsValidReminderType(t string) bool {
	return contains(ReminderTypes, t)
}

func IsValidReminderStatus(s string) bool {
	return contains(ReminderStatuses, s)
}

func contains(arr []string, val string) bool {
	for _, item := range arr {
		if item == val {
			return true
		}
	}
	return false
}
