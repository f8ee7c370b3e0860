package services

import (
	"context"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/elearning-service/internal/session"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
)

// ===== REQUEST DTOs =====

type SignUpRequest = validator.SignUpRequest
type SignInRequest = validator.SignInRequest
type UpdatePasswordRequest = validator.UpdatePasswordRequest
type ProfileUpdateRequest = validator.ProfileUpdateRequest
type CreateInviteRequest = validator.CreateInviteRequest
type ClaimInviteRequest = validator.ClaimInviteRequest
type CreateCourseRequest = validator.CourseCreateRequest
type UpdateCourseRequest = validator.CourseUpdateRequest
type CreateLessonRequest = validator.LessonCreateRequest
type UpdateLessonRequest = validator.LessonUpdateRequest
type ReorderLessonsRequest = validator.ReorderLessonsRequest
type MarkCompleteRequest = validator.MarkCompleteRequest
type SubmitQuizRequest = validator.SubmitQuizRequest

// ===== COLLABORATORS =====

// AuthProvider is the hosted auth service
type AuthProvider interface {
	SignUp(ctx context.Context, input casdoor.SignUpInput) (*models.AuthUser, error)
	SignInWithCode(ctx context.Context, sessionID, code, state string) (*models.Session, error)
	Refresh(ctx context.Context, sessionID string) (*models.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	UpdatePassword(ctx context.Context, sessionID, oldPassword, newPassword string) error
	ParseAccessToken(token string) (*models.AuthUser, error)
	ForSession(sessionID string) session.Provider
}

// ===== SERVICES =====

type AuthService interface {
	SignUp(ctx context.Context, req *SignUpRequest) (*models.CurrentUser, error)
	SignIn(ctx context.Context, req *SignInRequest) (*models.Session, error)
	Refresh(ctx context.Context, sessionID string) (*models.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	UpdatePassword(ctx context.Context, sessionID string, req *UpdatePasswordRequest) error
	// Authenticate resolves a bearer access token to the current user
	Authenticate(ctx context.Context, accessToken string) (*models.CurrentUser, error)
}

type ProfileService interface {
	session.ProfileLoader
	Get(ctx context.Context, user *models.CurrentUser) (*models.Profile, error)
	Update(ctx context.Context, user *models.CurrentUser, req *ProfileUpdateRequest) (*models.Profile, error)
	Ensure(ctx context.Context, user models.AuthUser) (*models.Profile, error)
}

type InviteService interface {
	Create(ctx context.Context, user *models.CurrentUser, req *CreateInviteRequest) (*models.InviteResponse, error)
	Claim(ctx context.Context, user *models.CurrentUser, req *ClaimInviteRequest) (*models.Profile, error)
	ListMine(ctx context.Context, user *models.CurrentUser) ([]*models.TeacherInvite, error)
}

type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest, user *models.CurrentUser) (*models.Course, error)
	Get(ctx context.Context, id string, user *models.CurrentUser) (*models.Course, error)
	List(ctx context.Context, filters repositories.CourseFilters, user *models.CurrentUser) (*models.CourseListResponse, error)
	ListMine(ctx context.Context, filters repositories.CourseFilters, user *models.CurrentUser) (*models.CourseListResponse, error)
	Update(ctx context.Context, id string, req *UpdateCourseRequest, user *models.CurrentUser) (*models.Course, error)
	Delete(ctx context.Context, id string, user *models.CurrentUser) error
	UploadCover(ctx context.Context, id string, filename string, data []byte, user *models.CurrentUser) (*models.Course, error)
}

type LessonService interface {
	Create(ctx context.Context, courseID string, req *CreateLessonRequest, user *models.CurrentUser) (*models.Lesson, error)
	Get(ctx context.Context, courseID, lessonID string, user *models.CurrentUser) (*models.Lesson, error)
	ListByCourse(ctx context.Context, courseID string, user *models.CurrentUser) ([]*models.Lesson, error)
	Update(ctx context.Context, courseID, lessonID string, req *UpdateLessonRequest, user *models.CurrentUser) (*models.Lesson, error)
	Delete(ctx context.Context, courseID, lessonID string, user *models.CurrentUser) error
	Reorder(ctx context.Context, courseID string, req *ReorderLessonsRequest, user *models.CurrentUser) ([]*models.Lesson, error)
}

type EnrollmentService interface {
	Enroll(ctx context.Context, courseID string, user *models.CurrentUser) (*models.Enrollment, error)
	ListMine(ctx context.Context, user *models.CurrentUser) ([]*models.EnrolledCourse, error)
	// CheckAccess returns ErrNotEnrolled unless the student is enrolled in the course
	CheckAccess(ctx context.Context, userID, courseID string) error
}

type ProgressService interface {
	MarkComplete(ctx context.Context, courseID, lessonID string, req *MarkCompleteRequest, user *models.CurrentUser) (*models.LessonProgress, error)
	SubmitQuiz(ctx context.Context, courseID, lessonID string, req *SubmitQuizRequest, user *models.CurrentUser) (*models.QuizResult, error)
	CourseProgress(ctx context.Context, courseID string, user *models.CurrentUser) (*models.CourseProgress, error)
	ExportReport(ctx context.Context, courseID string, user *models.CurrentUser) ([]byte, error)
}

// ShellService owns the reconcilers of open shell streams
type ShellService interface {
	Open(ctx context.Context, sessionID, fragment string) (*Shell, error)
	Continue(ctx context.Context, shellID string) (session.ViewState, error)
	SignOut(ctx context.Context, shellID string) (session.ViewState, error)
	Close(shellID string)
	Len() int
	CloseAll()
}

// ServiceManager wires every service and owns their lifecycle
type ServiceManager interface {
	Initialize(ctx context.Context) error

	Auth() AuthService
	Profile() ProfileService
	Invite() InviteService
	Course() CourseService
	Lesson() LessonService
	Enrollment() EnrollmentService
	Progress() ProgressService
	Shell() ShellService

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
