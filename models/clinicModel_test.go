package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatientMatchesQuery(t *testing.T) {
	patient := Patient{FullName: "John Smith", Phone: "555-1111", Email: "John.Smith@Example.com"}

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"smith", true},
		{"SMITH", true},
		{"john s", true},
		{"555", true},
		{"-1111", true},
		{"example.com", true},
		{"JOHN.SMITH@", true},
		{"999", false},
		{"jane", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, patient.MatchesQuery(tt.query))
		})
	}
}

func TestFilterPatientsKeepsOrder(t *testing.T) {
	patients := []Patient{
		{ID: "1", FullName: "Alice Smith", Phone: "111"},
		{ID: "2", FullName: "Bob Jones", Phone: "222"},
		{ID: "3", FullName: "Carol Smithers", Phone: "333"},
	}

	filtered := FilterPatients(patients, "smith")
	if assert.Len(t, filtered, 2) {
		assert.Equal(t, "1", filtered[0].ID)
		assert.Equal(t, "3", filtered[1].ID)
	}

	assert.Len(t, FilterPatients(patients, ""), 3)
	assert.Empty(t, FilterPatients(patients, "zzz"))
	assert.NotNil(t, FilterPatients(nil, "x"))
}

func TestPatientAllowsChannel(t *testing.T) {
	patient := Patient{SMSEnabled: true}

	assert.True(t, patient.AllowsChannel(ReminderSMS))
	assert.False(t, patient.AllowsChannel(ReminderEmail))
	assert.False(t, patient.AllowsChannel(ReminderWhatsApp))
	assert.True(t, patient.AllowsChannel(ReminderCall))
	assert.False(t, patient.AllowsChannel("pigeon"))
}

func TestStatusEnumerations(t *testing.T) {
	for _, s := range []string{"scheduled", "completed", "cancelled", "no_show"} {
		assert.True(t, IsValidAppointmentStatus(s), s)
	}
	for _, s := range []string{"", "pending", "Scheduled", "canceled"} {
		assert.False(t, IsValidAppointmentStatus(s), s)
	}

	assert.True(t, IsValidReminderType(ReminderWhatsApp))
	assert.False(t, IsValidReminderType("fax"))
	assert.True(t, IsValidReminderStatus(ReminderDelivered))
	assert.False(t, IsValidReminderStatus("queued"))
}

func TestProfileHasClinic(t *testing.T) {
	empty := ""
	id := "clinic-1"

	assert.False(t, (&Profile{}).HasClinic())
	assert.False(t, (&Profile{ClinicID: &empty}).HasClinic())
	assert.True(t, (&Profile{ClinicID: &id}).HasClinic())
	assert.True(t, IsValidRole(RoleStaff))
	assert.False(t, IsValidRole("admin"))
}
