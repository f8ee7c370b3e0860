package models

import "time"

// TeacherInvite is a single-use code that upgrades a student profile to teacher
type TeacherInvite struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	SecretHash string     `json:"-" gorm:"not null;size:100"`
	CreatedBy  string     `json:"created_by" gorm:"not null;index;size:255"`
	ClaimedBy  *string    `json:"claimed_by" gorm:"size:255"`
	ClaimedAt  *time.Time `json:"claimed_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (TeacherInvite) TableName() string {
	return "teacher_invites"
}

func (i *TeacherInvite) Usable(now time.Time) bool {
	return i.ClaimedBy == nil && now.Before(i.ExpiresAt)
}
