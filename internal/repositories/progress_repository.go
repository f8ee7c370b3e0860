package repositories

import (
	"context"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"gorm.io/gorm"
)

// EnrollmentRepository stores (student, course) enrollments
type EnrollmentRepository interface {
	// Create inserts the pair; enrolling twice is not an error
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	Get(ctx context.Context, tx *gorm.DB, userID, courseID string) (*models.Enrollment, error)
	Exists(ctx context.Context, tx *gorm.DB, userID, courseID string) (bool, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Enrollment, error)
}

// ProgressRepository stores per-lesson progress keyed by (user, course, lesson)
type ProgressRepository interface {
	// Upsert inserts or updates the record in one statement. The update only
	// applies when the stored version is older; otherwise ErrStaleWrite.
	Upsert(ctx context.Context, tx *gorm.DB, record *models.ProgressRecord) error
	Get(ctx context.Context, tx *gorm.DB, userID, courseID, lessonID string) (*models.ProgressRecord, error)
	ListByUserCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) ([]*models.ProgressRecord, error)
	CompletedByUser(ctx context.Context, tx *gorm.DB, userID string) ([]CourseCompletion, error)
	ReportByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]ProgressReportRow, error)
}
