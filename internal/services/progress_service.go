package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/progress"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
	"gorm.io/gorm"
)

type progressService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	registry  *progress.Registry
}

func NewProgressService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, registry *progress.Registry) ProgressService {
	return &progressService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		registry:  registry,
	}
}

// MarkComplete applies locally at once; the store write is queued
func (s *progressService) MarkComplete(ctx context.Context, courseID, lessonID string, req *MarkCompleteRequest, user *models.CurrentUser) (*models.LessonProgress, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.studentLesson(ctx, courseID, lessonID, user); err != nil {
		return nil, err
	}

	state, err := s.registry.For(user.ID).MarkLessonComplete(ctx, courseID, lessonID, *req.Completed)
	if err != nil {
		return nil, fmt.Errorf("failed to mark lesson complete: %w", err)
	}
	return &state, nil
}

// SubmitQuiz grades against the stored answers and records the score
func (s *progressService) SubmitQuiz(ctx context.Context, courseID, lessonID string, req *SubmitQuizRequest, user *models.CurrentUser) (*models.QuizResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}
	lesson, err := s.studentLesson(ctx, courseID, lessonID, user)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonQuiz {
		return nil, validationError(validator.ValidationErrors{{
			Field:   "lesson_id",
			Message: "lesson is not a quiz",
			Value:   lessonID,
		}})
	}

	result, err := s.registry.For(user.ID).SubmitQuiz(courseID, lesson, req.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to submit quiz: %w", err)
	}

	s.logger.Info("Quiz submitted", "user_id", user.ID, "lesson_id", lessonID, "score", result.Score)
	return &result, nil
}

// CourseProgress lists every lesson of the course with the student's state
func (s *progressService) CourseProgress(ctx context.Context, courseID string, user *models.CurrentUser) (*models.CourseProgress, error) {
	if !user.IsStudent() {
		return nil, ErrStudentOnly
	}
	if err := requireEnrollment(ctx, s.repo, user.ID, courseID); err != nil {
		return nil, err
	}

	lessons, err := s.repo.Lesson().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}

	view := s.registry.For(user.ID).CourseProgress(ctx, courseID, lessonIDs(lessons))
	return &view, nil
}

// studentLesson enforces the enrollment gate and that the lesson belongs to the course
func (s *progressService) studentLesson(ctx context.Context, courseID, lessonID string, user *models.CurrentUser) (*models.Lesson, error) {
	if !user.IsStudent() {
		return nil, ErrStudentOnly
	}
	if err := requireEnrollment(ctx, s.repo, user.ID, courseID); err != nil {
		return nil, err
	}

	lesson, err := s.repo.Lesson().GetByID(ctx, nil, lessonID)
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

func lessonIDs(lessons []*models.Lesson) []string {
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}
