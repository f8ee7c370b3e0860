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

type CoursePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (c *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

func (c *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := c.getDB(tx).WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, c.cacheManager.Course, "list:*")
	return nil
}

// GetByID retrieves a course by ID with caching
func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	var course models.Course
	err := c.cacheManager.Course.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := c.getDB(tx).WithContext(ctx).First(&dbCourse, "id = ?", id).Error; err != nil {
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
		return &dbCourse, nil
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *CoursePostgreSQL) GetByIDWithLessons(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	var course models.Course
	err := c.getDB(tx).WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lessons.order_index ASC")
		}).
		First(&course, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get course with lessons: %w", err)
	}
	return &course, nil
}

func (c *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	result := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", course.ID).
		Updates(map[string]interface{}{
			"title":       course.Title,
			"description": course.Description,
			"category":    course.Category,
			"status":      course.Status,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update course: %w", gorm.ErrRecordNotFound)
	}
	cache.InvalidateCourseCache(ctx, c.cacheManager, course.ID)
	return nil
}

func (c *CoursePostgreSQL) UpdateCover(ctx context.Context, tx *gorm.DB, id string, url string) error {
	result := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Update("cover_image_url", url)
	if result.Error != nil {
		return fmt.Errorf("failed to update course cover: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update course cover: %w", gorm.ErrRecordNotFound)
	}
	cache.InvalidateCourseCache(ctx, c.cacheManager, id)
	return nil
}

// Delete soft-deletes the course; its lessons stay until the row is purged
func (c *CoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := c.getDB(tx).WithContext(ctx).Delete(&models.Course{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete course: %w", gorm.ErrRecordNotFound)
	}
	cache.InvalidateCourseCache(ctx, c.cacheManager, id)
	return nil
}

type courseListPage struct {
	Courses []*models.Course `json:"courses"`
	Total   int64            `json:"total"`
}

// List returns one page of courses and the total match count. The unfiltered
// published catalog is cached.
func (c *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	if !isPublicCatalogQuery(filters) {
		return c.list(ctx, tx, filters)
	}

	key := fmt.Sprintf("list:published:%s:%s:%d:%d", filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	var page courseListPage
	err := c.cacheManager.Course.CacheOrExecute(ctx, key, &page, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		courses, total, err := c.list(ctx, tx, filters)
		if err != nil {
			return nil, err
		}
		return &courseListPage{Courses: courses, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Courses, page.Total, nil
}

func (c *CoursePostgreSQL) list(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	query := c.helpers.ApplyCourseFilters(c.getDB(tx).WithContext(ctx).Model(&models.Course{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	var courses []*models.Course
	query = c.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}

	return courses, total, nil
}

func isPublicCatalogQuery(filters repositories.CourseFilters) bool {
	return filters.Status != nil && *filters.Status == models.CoursePublished &&
		filters.InstructorID == nil && filters.Category == nil && filters.Query == ""
}
