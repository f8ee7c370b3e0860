package models

import "time"

// Enrollment grants a student access to one course's content and progress tracking
type Enrollment struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_user_course"`
	CourseID  string    `json:"course_id" gorm:"not null;size:36;uniqueIndex:idx_enrollment_user_course"`
	CreatedAt time.Time `json:"created_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
