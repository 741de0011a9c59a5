package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // pq.StringArray for the role set column
	"gorm.io/gorm"
)

// Role is a canonical role name. The frontends sent "student", "STUDENT" and
// ["STUDENT"] interchangeably; everything is folded into these two values.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
)

// ParseRole normalizes a role string case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleStudent):
		return RoleStudent, true
	case string(RoleStaff):
		return RoleStaff, true
	}
	return "", false
}

// NormalizeRoles returns a sorted, de-duplicated canonical role set.
// ok is false if the set is empty or contains an unknown role.
func NormalizeRoles(raw []string) (pq.StringArray, bool) {
	seen := make(map[Role]bool, len(raw))
	for _, r := range raw {
		role, ok := ParseRole(r)
		if !ok {
			return nil, false
		}
		seen[role] = true
	}
	if len(seen) == 0 {
		return nil, false
	}
	out := make(pq.StringArray, 0, len(seen))
	for role := range seen {
		out = append(out, string(role))
	}
	sort.Strings(out)
	return out, true
}

// User is an identity: a student filing complaints or a staff member resolving them.
// Email and Roles are fixed at registration; only DisplayName and RoomNumber change later.
type User struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string         `gorm:"not null" json:"name"`
	Roles        pq.StringArray `gorm:"type:text[]" json:"roles"`
	RoomNumber   string         `json:"roomno,omitempty"` // students only
	PasswordHash string         `json:"-"`
	Verified     bool           `json:"verified"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// BeforeCreate generates a UUID for the user if the ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// HasRole is case-insensitive so rows written before normalization still match.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if parsed, ok := ParseRole(r); ok && parsed == role {
			return true
		}
	}
	return false
}

func (u *User) IsStaff() bool   { return u.HasRole(RoleStaff) }
func (u *User) IsStudent() bool { return u.HasRole(RoleStudent) }
