package models_test

import (
	"reflect"
	"testing"

	"roomresq/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	// Arrange
	user := &models.User{
		Email:       "asha@hostel.edu",
		DisplayName: "Asha",
		Roles:       pq.StringArray{"STUDENT"},
		RoomNumber:  "A-101",
	}
	assert.Empty(t, user.ID, "User ID should be empty before BeforeCreate")

	// Act
	err := user.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	// Assert
	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestUserBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestUserBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Email: "ravi@hostel.edu"}

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, user.ID, "BeforeCreate should preserve existing ID")
}

// TestUserStructTags catches accidental tag removal during refactoring.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	idField, found := userType.FieldByName("ID")
	assert.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")
	assert.Equal(t, "id", idField.Tag.Get("json"))

	emailField, found := userType.FieldByName("Email")
	assert.True(t, found)
	assert.Contains(t, emailField.Tag.Get("gorm"), "uniqueIndex")

	rolesField, found := userType.FieldByName("Roles")
	assert.True(t, found)
	assert.Contains(t, rolesField.Tag.Get("gorm"), "type:text[]", "Roles should use PostgreSQL array type")

	hashField, found := userType.FieldByName("PasswordHash")
	assert.True(t, found)
	assert.Equal(t, "-", hashField.Tag.Get("json"), "password hash must never be serialized")
}

func TestNormalizeRoles(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		want   pq.StringArray
		wantOK bool
	}{
		{name: "lowercase student", input: []string{"student"}, want: pq.StringArray{"STUDENT"}, wantOK: true},
		{name: "mixed case and duplicates", input: []string{"Staff", "STAFF", " staff "}, want: pq.StringArray{"STAFF"}, wantOK: true},
		{name: "both roles sorted", input: []string{"student", "staff"}, want: pq.StringArray{"STAFF", "STUDENT"}, wantOK: true},
		{name: "empty set", input: nil, wantOK: false},
		{name: "unknown role", input: []string{"warden"}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := models.NormalizeRoles(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestUserHasRole(t *testing.T) {
	staff := &models.User{Roles: pq.StringArray{"staff"}}
	student := &models.User{Roles: pq.StringArray{"STUDENT"}}
	var nobody *models.User

	assert.True(t, staff.IsStaff())
	assert.False(t, staff.IsStudent())
	assert.True(t, student.IsStudent())
	assert.False(t, student.IsStaff())
	assert.False(t, nobody.IsStaff(), "nil user holds no role")
}

// BenchmarkUserBeforeCreate measures UUID generation performance.
func BenchmarkUserBeforeCreate(b *testing.B) {
	user := &models.User{Email: "bench@hostel.edu"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		user.ID = ""
		_ = user.BeforeCreate(nil)
	}
}
