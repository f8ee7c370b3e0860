package models

import (
	"time"

	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

type Course struct {
	ID            string       `json:"id" gorm:"primaryKey;size:36"`
	Title         string       `json:"title" gorm:"not null;size:200"`
	Description   *string      `json:"description" gorm:"type:text"`
	Category      *string      `json:"category" gorm:"size:100"`
	InstructorID  string       `json:"instructor_id" gorm:"not null;index;size:255"`
	CoverImageURL *string      `json:"cover_image_url" gorm:"size:500"`
	Status        CourseStatus `json:"status" gorm:"default:draft;index;size:20"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Lessons []Lesson `json:"lessons,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

func (Course) TableName() string {
	return "courses"
}

// OwnedBy reports whether userID is the course instructor
func (c *Course) OwnedBy(userID string) bool {
	return c != nil && c.InstructorID == userID
}
