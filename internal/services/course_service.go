package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/SAP-F-2025/elearning-service/internal/cache"
	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/storage"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var coverExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type courseService struct {
	repo         repositories.Repository
	db           *gorm.DB
	logger       *slog.Logger
	validator    *validator.Validator
	storage      storage.ObjectStorage
	cache        *cache.CacheManager
	maxCoverSize int64
}

func NewCourseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, objects storage.ObjectStorage, cacheManager *cache.CacheManager, maxCoverSize int64) CourseService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &courseService{
		repo:         repo,
		db:           db,
		logger:       logger,
		validator:    validator,
		storage:      objects,
		cache:        cacheManager,
		maxCoverSize: maxCoverSize,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest, user *models.CurrentUser) (*models.Course, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}
	if !user.IsTeacher() {
		return nil, NewPermissionError(user.ID, "", "course", "create", "teacher role required")
	}

	status := req.Status
	if status == "" {
		status = models.CourseDraft
	}

	course := &models.Course{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Category:     req.Category,
		InstructorID: user.ID,
		Status:       status,
	}

	s.logger.Info("Creating course", "course_id", course.ID, "instructor_id", user.ID)
	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	cache.InvalidateCourseCache(ctx, s.cache, course.ID)
	return course, nil
}

// Get returns published courses to everyone and any course to its owner
func (s *courseService) Get(ctx context.Context, id string, user *models.CurrentUser) (*models.Course, error) {
	course, err := s.getCourse(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CoursePublished && !course.OwnedBy(user.ID) {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// List is the public catalog: published courses only, served through the cache
func (s *courseService) List(ctx context.Context, filters repositories.CourseFilters, user *models.CurrentUser) (*models.CourseListResponse, error) {
	published := models.CoursePublished
	filters.Status = &published
	filters.InstructorID = nil
	filters = pageFilters(filters)

	key := fmt.Sprintf("list:%s:%s:%d:%d:%s:%s", derefString(filters.Category), filters.Query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder)
	var response models.CourseListResponse
	err := s.cache.Course.CacheOrExecute(ctx, key, &response, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		return s.list(ctx, filters)
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// ListMine lists the caller's own courses in any status
func (s *courseService) ListMine(ctx context.Context, filters repositories.CourseFilters, user *models.CurrentUser) (*models.CourseListResponse, error) {
	if !user.IsTeacher() {
		return nil, NewPermissionError(user.ID, "", "course", "list", "teacher role required")
	}
	filters.InstructorID = &user.ID
	return s.list(ctx, filters)
}

func (s *courseService) Update(ctx context.Context, id string, req *UpdateCourseRequest, user *models.CurrentUser) (*models.Course, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	var updated *models.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := s.ownedCourse(ctx, tx, id, user, "update")
		if err != nil {
			return err
		}

		if req.Title != nil {
			course.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			course.Description = req.Description
		}
		if req.Category != nil {
			course.Category = req.Category
		}
		if req.Status != nil {
			course.Status = *req.Status
		}

		if err := s.repo.Course().Update(ctx, tx, course); err != nil {
			return fmt.Errorf("failed to update course: %w", err)
		}
		updated = course
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateCourseCache(ctx, s.cache, id)
	s.logger.Info("Course updated", "course_id", id, "status", updated.Status)
	return updated, nil
}

func (s *courseService) Delete(ctx context.Context, id string, user *models.CurrentUser) error {
	if _, err := s.ownedCourse(ctx, nil, id, user, "delete"); err != nil {
		return err
	}
	if err := s.repo.Course().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	cache.InvalidateCourseCache(ctx, s.cache, id)
	s.logger.Info("Course deleted", "course_id", id, "user_id", user.ID)
	return nil
}

// UploadCover stores an image under covers/<course id>/ and points the course at it
func (s *courseService) UploadCover(ctx context.Context, id string, filename string, data []byte, user *models.CurrentUser) (*models.Course, error) {
	course, err := s.ownedCourse(ctx, nil, id, user, "update")
	if err != nil {
		return nil, err
	}
	if s.maxCoverSize > 0 && int64(len(data)) > s.maxCoverSize {
		return nil, ErrCoverTooLarge
	}

	ext, ok := coverExtensions[http.DetectContentType(data)]
	if !ok {
		return nil, ErrInvalidCover
	}

	objectPath := path.Join("covers", course.ID, uuid.NewString()+ext)
	url, err := s.storage.Upload(ctx, objectPath, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload cover: %w", err)
	}

	if err := s.repo.Course().UpdateCover(ctx, nil, course.ID, url); err != nil {
		return nil, fmt.Errorf("failed to save cover: %w", err)
	}
	course.CoverImageURL = &url
	cache.InvalidateCourseCache(ctx, s.cache, course.ID)

	s.logger.Info("Course cover uploaded", "course_id", id, "file", filename, "size", len(data))
	return course, nil
}

// ===== HELPERS =====

func pageFilters(filters repositories.CourseFilters) repositories.CourseFilters {
	if filters.Limit <= 0 {
		filters.Limit = defaultPageSize
	}
	if filters.Limit > maxPageSize {
		filters.Limit = maxPageSize
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return filters
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *courseService) list(ctx context.Context, filters repositories.CourseFilters) (*models.CourseListResponse, error) {
	filters = pageFilters(filters)
	courses, total, err := s.repo.Course().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	return &models.CourseListResponse{
		Courses: courses,
		Total:   total,
		Page:    filters.Offset/filters.Limit + 1,
		Size:    filters.Limit,
	}, nil
}

func (s *courseService) getCourse(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func (s *courseService) ownedCourse(ctx context.Context, tx *gorm.DB, id string, user *models.CurrentUser, action string) (*models.Course, error) {
	course, err := s.getCourse(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !course.OwnedBy(user.ID) {
		return nil, NewPermissionError(user.ID, id, "course", action, "not the course instructor")
	}
	return course, nil
}
