package healthie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPatientRecord(t *testing.T) {
	fields := basicInfoFields{
		ID:          "12345",
		Email:       "jane@example.com",
		Phone:       "5551234567",
		Group:       "Weight Loss",
		Location:    "Remote",
		Timezone:    "America/New_York",
		LastSync:    "Aug 28, 2026",
		ClientSince: "Jan 5, 2024",
	}

	t.Run("portal date of birth label wins", func(t *testing.T) {
		fields := fields
		fields.DOBLabel = "Jan 5, 1990"

		record := newPatientRecord(fields, "Jane Doe", "1990-01-05")

		assert.Equal(t, "Jan 5, 1990", record.DateOfBirth)
		assert.Equal(t, "12345", record.ID)
		assert.Equal(t, "Jane Doe", record.Name)
		assert.Equal(t, "jane@example.com", record.Email)
		assert.Equal(t, "5551234567", record.Phone)
		assert.Equal(t, "Weight Loss", record.Group)
		assert.Equal(t, "Remote", record.Location)
		assert.Equal(t, "America/New_York", record.Timezone)
		assert.Equal(t, "Aug 28, 2026", record.LastSync)
		assert.Equal(t, "Jan 5, 2024", record.ClientSince)
	})

	t.Run("caller date of birth fills an empty label", func(t *testing.T) {
		record := newPatientRecord(fields, "Jane Doe", "1990-01-05")
		assert.Equal(t, "1990-01-05", record.DateOfBirth)
	})

	t.Run("both empty stays empty", func(t *testing.T) {
		record := newPatientRecord(fields, "Jane Doe", "")
		assert.Equal(t, "", record.DateOfBirth)
	})
}
