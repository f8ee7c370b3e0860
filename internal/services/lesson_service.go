package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/SAP-F-2025/elearning-service/internal/cache"
	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type lessonService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	cache     *cache.CacheManager
}

func NewLessonService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, cacheManager *cache.CacheManager) LessonService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &lessonService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		cache:     cacheManager,
	}
}

func (s *lessonService) Create(ctx context.Context, courseID string, req *CreateLessonRequest, user *models.CurrentUser) (*models.Lesson, error) {
	if errs := s.validator.GetBusinessValidator().ValidateLessonCreate(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	lesson := &models.Lesson{
		ID:       uuid.NewString(),
		CourseID: courseID,
		Title:    strings.TrimSpace(req.Title),
		Type:     req.Type,
		VideoURL: req.VideoURL,
		Duration: req.Duration,
	}
	if err := lesson.SetQuiz(quizFromRequest(req.Quiz)); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedCourse(ctx, tx, courseID, user, "add lessons to"); err != nil {
			return err
		}

		next, err := s.repo.Lesson().NextOrderIndex(ctx, tx, courseID)
		if err != nil {
			return fmt.Errorf("failed to get lesson order: %w", err)
		}
		lesson.OrderIndex = next

		if err := s.repo.Lesson().Create(ctx, tx, lesson); err != nil {
			return fmt.Errorf("failed to create lesson: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateLessonCache(ctx, s.cache, courseID)
	s.logger.Info("Lesson created", "course_id", courseID, "lesson_id", lesson.ID, "type", lesson.Type)
	return lesson, nil
}

// Get returns lesson content to the course owner, or with quiz answers
// stripped to an enrolled student
func (s *lessonService) Get(ctx context.Context, courseID, lessonID string, user *models.CurrentUser) (*models.Lesson, error) {
	course, err := s.course(ctx, nil, courseID)
	if err != nil {
		return nil, err
	}
	lesson, err := s.lessonOf(ctx, nil, courseID, lessonID)
	if err != nil {
		return nil, err
	}

	if course.OwnedBy(user.ID) {
		return lesson, nil
	}
	if err := requireEnrollment(ctx, s.repo, user.ID, courseID); err != nil {
		return nil, err
	}
	return lesson.StripAnswers()
}

func (s *lessonService) ListByCourse(ctx context.Context, courseID string, user *models.CurrentUser) ([]*models.Lesson, error) {
	course, err := s.course(ctx, nil, courseID)
	if err != nil {
		return nil, err
	}

	owner := course.OwnedBy(user.ID)
	if !owner {
		if err := requireEnrollment(ctx, s.repo, user.ID, courseID); err != nil {
			return nil, err
		}
	}

	var lessons []*models.Lesson
	err = s.cache.Lesson.CacheOrExecute(ctx, "course:"+courseID, &lessons, cache.LessonCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Lesson().ListByCourse(ctx, nil, courseID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	if owner {
		return lessons, nil
	}

	stripped := make([]*models.Lesson, 0, len(lessons))
	for _, l := range lessons {
		out, err := l.StripAnswers()
		if err != nil {
			return nil, err
		}
		stripped = append(stripped, out)
	}
	return stripped, nil
}

func (s *lessonService) Update(ctx context.Context, courseID, lessonID string, req *UpdateLessonRequest, user *models.CurrentUser) (*models.Lesson, error) {
	var updated *models.Lesson
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedCourse(ctx, tx, courseID, user, "edit lessons of"); err != nil {
			return err
		}
		lesson, err := s.lessonOf(ctx, tx, courseID, lessonID)
		if err != nil {
			return err
		}

		if errs := s.validator.GetBusinessValidator().ValidateLessonUpdate(req, lesson); len(errs) > 0 {
			return validationError(errs)
		}

		if req.Title != nil {
			lesson.Title = strings.TrimSpace(*req.Title)
		}
		if req.Type != nil {
			lesson.Type = *req.Type
		}
		if req.VideoURL != nil {
			lesson.VideoURL = req.VideoURL
		}
		if req.Quiz != nil {
			if err := lesson.SetQuiz(quizFromRequest(req.Quiz)); err != nil {
				return err
			}
		}
		if req.Duration != nil {
			lesson.Duration = req.Duration
		}
		lesson.Normalize()

		if err := s.repo.Lesson().Update(ctx, tx, lesson); err != nil {
			return fmt.Errorf("failed to update lesson: %w", err)
		}
		updated = lesson
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateLessonCache(ctx, s.cache, courseID)
	return updated, nil
}

func (s *lessonService) Delete(ctx context.Context, courseID, lessonID string, user *models.CurrentUser) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedCourse(ctx, tx, courseID, user, "delete lessons of"); err != nil {
			return err
		}
		if _, err := s.lessonOf(ctx, tx, courseID, lessonID); err != nil {
			return err
		}
		if err := s.repo.Lesson().Delete(ctx, tx, lessonID); err != nil {
			return fmt.Errorf("failed to delete lesson: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateLessonCache(ctx, s.cache, courseID)
	return nil
}

// Reorder requires the full set of the course's lesson ids in the new order
func (s *lessonService) Reorder(ctx context.Context, courseID string, req *ReorderLessonsRequest, user *models.CurrentUser) ([]*models.Lesson, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	var lessons []*models.Lesson
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedCourse(ctx, tx, courseID, user, "reorder lessons of"); err != nil {
			return err
		}

		current, err := s.repo.Lesson().ListByCourse(ctx, tx, courseID)
		if err != nil {
			return fmt.Errorf("failed to list lessons: %w", err)
		}
		if !sameLessonSet(current, req.LessonIDs) {
			return ErrLessonOrder
		}

		if err := s.repo.Lesson().Reorder(ctx, tx, courseID, req.LessonIDs); err != nil {
			return fmt.Errorf("failed to reorder lessons: %w", err)
		}
		lessons, err = s.repo.Lesson().ListByCourse(ctx, tx, courseID)
		if err != nil {
			return fmt.Errorf("failed to list lessons: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateLessonCache(ctx, s.cache, courseID)
	return lessons, nil
}

// ===== HELPERS =====

func (s *lessonService) course(ctx context.Context, tx *gorm.DB, courseID string) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, tx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func (s *lessonService) ownedCourse(ctx context.Context, tx *gorm.DB, courseID string, user *models.CurrentUser, action string) (*models.Course, error) {
	course, err := s.course(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.OwnedBy(user.ID) {
		return nil, NewPermissionError(user.ID, courseID, "course", action, "not the course instructor")
	}
	return course, nil
}

func (s *lessonService) lessonOf(ctx context.Context, tx *gorm.DB, courseID, lessonID string) (*models.Lesson, error) {
	lesson, err := s.repo.Lesson().GetByID(ctx, tx, lessonID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	if lesson.CourseID != courseID {
		return nil, ErrLessonNotFound
	}
	return lesson, nil
}

func sameLessonSet(current []*models.Lesson, ids []string) bool {
	if len(current) != len(ids) {
		return false
	}
	want := make([]string, 0, len(current))
	for _, l := range current {
		want = append(want, l.ID)
	}
	got := slices.Clone(ids)
	slices.Sort(want)
	slices.Sort(got)
	return slices.Equal(want, got)
}

// quizFromRequest assigns ids to questions submitted without one
func quizFromRequest(req *validator.QuizRequest) *models.QuizData {
	if req == nil {
		return nil
	}
	quiz := &models.QuizData{Questions: make([]models.QuizQuestion, 0, len(req.Questions))}
	for _, q := range req.Questions {
		id := q.ID
		if id == "" {
			id = uuid.NewString()
		}
		quiz.Questions = append(quiz.Questions, models.QuizQuestion{
			ID:                 id,
			Question:           q.Question,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
		})
	}
	return quiz
}
