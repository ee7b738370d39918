package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile roles
const (
	RoleDoctor  = "doctor"
	RoleStaff   = "staff"
	RolePatient = "patient"
)

// Roles lists every role a profile may hold.
var Roles = []string{RoleDoctor, RoleStaff, RolePatient}

// IsValidRole reports whether role is one of Roles.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Role is the reference row offered on the role selection screen.
type Role struct {
	ID          int64     `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"size:50;not null;unique;index;column:name" json:"name"`
	Description string    `gorm:"type:text;column:description" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (Role) TableName() string {
	return "roles"
}

// SeedRoles inserts the profile roles into the database
func SeedRoles(db *gorm.DB) error {
	initialRoles := []Role{
		{Name: RoleDoctor, Description: "Registers a clinic and manages its patients, appointments and reminders"},
		{Name: RoleStaff, Description: "Works in a clinic: schedules appointments and sends reminders"},
		{Name: RolePatient, Description: "Views their own appointments and reminders"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, role := range initialRoles {
			if err := tx.FirstOrCreate(&role, Role{Name: role.Name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// User is an authenticated identity. It carries no role; that lives on Profile.
type User struct {
	ID            string    `gorm:"primaryKey;size:36;column:id" json:"id"`
	Email         string    `gorm:"size:255;not null;unique;index;column:email" json:"email"`
	Password      string    `gorm:"size:255;not null;column:password" json:"-"`
	EmailVerified bool      `gorm:"not null;default:false;column:email_verified" json:"email_verified"`
	CreatedAt     time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Profile links a user to a role and, for clinic members, to a clinic.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36;column:id" json:"id"`
	Role      string    `gorm:"size:20;not null;column:role;check:role IN ('doctor', 'staff', 'patient')" json:"role"`
	FullName  string    `gorm:"size:255;not null;column:full_name" json:"full_name"`
	Phone     string    `gorm:"size:50;column:phone" json:"phone"`
	ClinicID  *string   `gorm:"size:36;index;column:clinic_id" json:"clinic_id"`
	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// HasClinic reports whether the profile is attached to a clinic.
func (p *Profile) HasClinic() bool {
	return p.ClinicID != nil && *p.ClinicID != ""
}
