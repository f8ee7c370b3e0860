package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/elearning-service/internal/cache"
	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type LessonPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewLessonPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.LessonRepository {
	return &LessonPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (l *LessonPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return l.db
}

func (l *LessonPostgreSQL) Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	lesson.Normalize()
	if err := l.getDB(tx).WithContext(ctx).Create(lesson).Error; err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	cache.InvalidateLessonCache(ctx, l.cacheManager, lesson.CourseID)
	return nil
}

func (l *LessonPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := l.getDB(tx).WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return &lesson, nil
}

// Update writes every content column so switching type clears the other payload
func (l *LessonPostgreSQL) Update(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	lesson.Normalize()
	result := l.getDB(tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Where("id = ?", lesson.ID).
		Updates(map[string]interface{}{
			"title":     lesson.Title,
			"type":      lesson.Type,
			"video_url": lesson.VideoURL,
			"quiz_data": lesson.QuizData,
			"duration":  lesson.Duration,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update lesson: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update lesson: %w", gorm.ErrRecordNotFound)
	}
	cache.InvalidateLessonCache(ctx, l.cacheManager, lesson.CourseID)
	return nil
}

func (l *LessonPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	var lesson models.Lesson
	db := l.getDB(tx).WithContext(ctx)
	if err := db.Select("id, course_id").First(&lesson, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	if err := db.Delete(&models.Lesson{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	cache.InvalidateLessonCache(ctx, l.cacheManager, lesson.CourseID)
	return nil
}

// ListByCourse returns the course lessons ordered by order_index, cached per course
func (l *LessonPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Lesson, error) {
	var lessons []*models.Lesson
	err := l.cacheManager.Lesson.CacheOrExecute(ctx, fmt.Sprintf("course:%s", courseID), &lessons, cache.LessonCacheConfig.TTL, func() (interface{}, error) {
		var dbLessons []*models.Lesson
		err := l.getDB(tx).WithContext(ctx).
			Where("course_id = ?", courseID).
			Order("order_index ASC").
			Find(&dbLessons).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list lessons: %w", err)
		}
		return dbLessons, nil
	})
	if err != nil {
		return nil, err
	}
	return lessons, nil
}

func (l *LessonPostgreSQL) CountByCourse(ctx context.Context, tx *gorm.DB, courseID string) (int64, error) {
	var count int64
	err := l.getDB(tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return count, nil
}

func (l *LessonPostgreSQL) CountByCourses(ctx context.Context, tx *gorm.DB, courseIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CourseID string
		Total    int
	}
	err := l.getDB(tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Select("course_id, COUNT(*) AS total").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}

	for _, row := range rows {
		counts[row.CourseID] = row.Total
	}
	return counts, nil
}

func (l *LessonPostgreSQL) NextOrderIndex(ctx context.Context, tx *gorm.DB, courseID string) (int, error) {
	var next int
	err := l.getDB(tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Select("COALESCE(MAX(order_index), -1) + 1").
		Where("course_id = ?", courseID).
		Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute lesson order: %w", err)
	}
	return next, nil
}

// Reorder assigns order_index by position in lessonIDs. Run inside a transaction.
func (l *LessonPostgreSQL) Reorder(ctx context.Context, tx *gorm.DB, courseID string, lessonIDs []string) error {
	db := l.getDB(tx).WithContext(ctx)
	for i, id := range lessonIDs {
		result := db.Model(&models.Lesson{}).
			Where("id = ? AND course_id = ?", id, courseID).
			Update("order_index", i)
		if result.Error != nil {
			return fmt.Errorf("failed to reorder lesson %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("failed to reorder lesson %s: %w", id, gorm.ErrRecordNotFound)
		}
	}
	cache.InvalidateLessonCache(ctx, l.cacheManager, courseID)
	return nil
}
