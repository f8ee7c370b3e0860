package models

import "time"

// ===== VIEW DTOs =====

// LessonProgress is the per-lesson state shown to a student
type LessonProgress struct {
	LessonID  string    `json:"lesson_id"`
	Completed bool      `json:"completed"`
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CourseProgress is a student's view of one course
type CourseProgress struct {
	CourseID             string                    `json:"course_id"`
	CompletionPercentage int                       `json:"completion_percentage"`
	CompletedLessons     int                       `json:"completed_lessons"`
	TotalLessons         int                       `json:"total_lessons"`
	Lessons              map[string]LessonProgress `json:"lessons"`
}

// QuizResult is returned after a quiz submission
type QuizResult struct {
	LessonID       string `json:"lesson_id"`
	Score          int    `json:"score"`
	CorrectCount   int    `json:"correct_count"`
	TotalQuestions int    `json:"total_questions"`
}

// EnrolledCourse is one row of the student dashboard
type EnrolledCourse struct {
	Course               *Course   `json:"course"`
	EnrolledAt           time.Time `json:"enrolled_at"`
	CompletionPercentage int       `json:"completion_percentage"`
}

// CourseListResponse is a paginated course list
type CourseListResponse struct {
	Courses []*Course `json:"courses"`
	Total   int64     `json:"total"`
	Page    int       `json:"page"`
	Size    int       `json:"size"`
}

// InviteResponse carries a newly minted teacher invite code. The code is shown once.
type InviteResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ===== ERROR RESPONSES =====

type ValidationErrorResponse struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

type ErrorResponse struct {
	Error            string                    `json:"error"`
	Message          string                    `json:"message"`
	Details          interface{}               `json:"details,omitempty"`
	Timestamp        time.Time                 `json:"timestamp"`
	Path             string                    `json:"path"`
	ValidationErrors []ValidationErrorResponse `json:"validation_errors,omitempty"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
