package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Profile is the persisted display record of a user, keyed by the auth provider's user id
type Profile struct {
	ID        string   `json:"id" gorm:"primaryKey;size:255"`
	FullName  string   `json:"full_name" gorm:"size:100"`
	Role      UserRole `json:"role" gorm:"size:20;default:student"`
	AvatarURL *string  `json:"avatar_url" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// CurrentUser is the derived application identity. It is rebuilt on every
// session resolution and never persisted.
type CurrentUser struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	Avatar *string  `json:"avatar,omitempty"`
}

func (u *CurrentUser) IsTeacher() bool { return u != nil && u.Role == RoleTeacher }
func (u *CurrentUser) IsStudent() bool { return u != nil && u.Role == RoleStudent }
