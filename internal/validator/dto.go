package validator

import "github.com/SAP-F-2025/elearning-service/internal/models"

// ===== AUTH =====

type SignUpRequest struct {
	Email           string          `json:"email" validate:"required,email,max=255"`
	Password        string          `json:"password" validate:"required,min=6,max=128"`
	ConfirmPassword string          `json:"confirm_password" validate:"required,eqfield=Password"`
	FullName        string          `json:"full_name" validate:"required,display_name"`
	Role            models.UserRole `json:"role" validate:"omitempty,user_role"`
	InviteCode      string          `json:"invite_code" validate:"required_if=Role teacher,max=200"`
}

type SignInRequest struct {
	Code      string `json:"code" validate:"required"`
	State     string `json:"state"`
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
}

type UpdatePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ===== PROFILE =====

type ProfileUpdateRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,display_name"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

type ClaimInviteRequest struct {
	Code string `json:"code" validate:"required,max=200"`
}

type CreateInviteRequest struct {
	ExpiresInHours int `json:"expires_in_hours" validate:"omitempty,min=1,max=720"`
}

// ===== CATALOG =====

type CourseCreateRequest struct {
	Title       string              `json:"title" validate:"required,course_title"`
	Description *string             `json:"description" validate:"omitempty,max=5000"`
	Category    *string             `json:"category" validate:"omitempty,max=100"`
	Status      models.CourseStatus `json:"status" validate:"omitempty,course_status"`
}

type CourseUpdateRequest struct {
	Title       *string              `json:"title" validate:"omitempty,course_title"`
	Description *string              `json:"description" validate:"omitempty,max=5000"`
	Category    *string              `json:"category" validate:"omitempty,max=100"`
	Status      *models.CourseStatus `json:"status" validate:"omitempty,course_status"`
}

type QuizQuestionRequest struct {
	ID                 string   `json:"id" validate:"omitempty,max=64"`
	Question           string   `json:"question" validate:"required,max=1000"`
	Options            []string `json:"options" validate:"required,min=2,max=10,dive,required,max=500"`
	CorrectOptionIndex int      `json:"correctOptionIndex" validate:"min=0"`
}

type QuizRequest struct {
	Questions []QuizQuestionRequest `json:"questions" validate:"required,min=1,max=100,dive"`
}

// LessonCreateRequest carries either a video URL or a quiz, matching Type
type LessonCreateRequest struct {
	Title    string            `json:"title" validate:"required,max=200"`
	Type     models.LessonType `json:"type" validate:"required,lesson_type"`
	VideoURL *string           `json:"video_url" validate:"omitempty,url,max=500"`
	Quiz     *QuizRequest      `json:"quiz_data" validate:"omitempty"`
	Duration *int              `json:"duration" validate:"omitempty,min=0,max=1440"`
}

type LessonUpdateRequest struct {
	Title    *string            `json:"title" validate:"omitempty,max=200"`
	Type     *models.LessonType `json:"type" validate:"omitempty,lesson_type"`
	VideoURL *string            `json:"video_url" validate:"omitempty,url,max=500"`
	Quiz     *QuizRequest       `json:"quiz_data" validate:"omitempty"`
	Duration *int               `json:"duration" validate:"omitempty,min=0,max=1440"`
}

type ReorderLessonsRequest struct {
	LessonIDs []string `json:"lesson_ids" validate:"required,min=1,dive,required"`
}

// ===== PROGRESS =====

type MarkCompleteRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// SubmitQuizRequest maps question id to the selected option index
type SubmitQuizRequest struct {
	Answers map[string]int `json:"answers" validate:"required"`
}
