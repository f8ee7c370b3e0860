package repositories

import (
	"context"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"gorm.io/gorm"
)

// CourseRepository interface for catalog course operations
type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error)
	GetByIDWithLessons(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)
	UpdateCover(ctx context.Context, tx *gorm.DB, id string, url string) error
}

// LessonRepository interface for lesson operations. Lessons are always returned
// ordered by order_index.
type LessonRepository interface {
	Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Lesson, error)
	Update(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Lesson, error)
	CountByCourse(ctx context.Context, tx *gorm.DB, courseID string) (int64, error)
	CountByCourses(ctx context.Context, tx *gorm.DB, courseIDs []string) (map[string]int, error)
	NextOrderIndex(ctx context.Context, tx *gorm.DB, courseID string) (int, error)
	Reorder(ctx context.Context, tx *gorm.DB, courseID string, lessonIDs []string) error
}
