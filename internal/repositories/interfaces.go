package repositories

import (
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	Status       *models.CourseStatus `json:"status"`
	InstructorID *string              `json:"instructor_id"`
	Category     *string              `json:"category"`
	Query        string               `json:"query"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
	SortBy       string               `json:"sort_by"`    // "created_at", "title", "updated_at"
	SortOrder    string               `json:"sort_order"` // "asc", "desc"
}

// ===== SHARED STATISTICS STRUCTS =====

// CourseCompletion counts completed lessons of one student in one course
type CourseCompletion struct {
	CourseID  string `json:"course_id"`
	Completed int    `json:"completed"`
}

// ProgressReportRow is one (student, lesson) cell of a teacher's course report
type ProgressReportRow struct {
	UserID    string     `json:"user_id"`
	FullName  string     `json:"full_name"`
	LessonID  string     `json:"lesson_id"`
	Completed bool       `json:"completed"`
	Score     int        `json:"score"`
	UpdatedAt *time.Time `json:"updated_at"`
}
