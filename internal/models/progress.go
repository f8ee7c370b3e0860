package models

import "time"

// ProgressRecord is one student's state for one lesson of one course
type ProgressRecord struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_progress_key"`
	CourseID  string    `json:"course_id" gorm:"not null;size:36;uniqueIndex:idx_progress_key"`
	LessonID  string    `json:"lesson_id" gorm:"not null;size:36;uniqueIndex:idx_progress_key"`
	Completed bool      `json:"completed" gorm:"not null"`
	Score     int       `json:"score" gorm:"not null;check:score >= 0 AND score <= 100"`
	Version   int64     `json:"version" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProgressRecord) TableName() string {
	return "student_progress"
}
