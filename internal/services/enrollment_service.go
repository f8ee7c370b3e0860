package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/progress"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type enrollmentService struct {
	repo     repositories.Repository
	db       *gorm.DB
	logger   *slog.Logger
	registry *progress.Registry
}

func NewEnrollmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, registry *progress.Registry) EnrollmentService {
	return &enrollmentService{
		repo:     repo,
		db:       db,
		logger:   logger,
		registry: registry,
	}
}

// Enroll is idempotent: enrolling twice returns the existing enrollment
func (s *enrollmentService) Enroll(ctx context.Context, courseID string, user *models.CurrentUser) (*models.Enrollment, error) {
	if !user.IsStudent() {
		return nil, ErrStudentOnly
	}

	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course.Status != models.CoursePublished {
		return nil, ErrCourseNotPublished
	}

	enrollment := &models.Enrollment{ID: uuid.NewString(), UserID: user.ID, CourseID: courseID}
	if err := s.repo.Enrollment().Create(ctx, nil, enrollment); err != nil {
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}

	stored, err := s.repo.Enrollment().Get(ctx, nil, user.ID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}

	s.logger.Info("Student enrolled", "user_id", user.ID, "course_id", courseID)
	return stored, nil
}

// ListMine is the student dashboard: every enrolled course with its completion.
// Courses with unsynced local edits are computed the same way as the course
// progress view; the rest come from the stored counts.
func (s *enrollmentService) ListMine(ctx context.Context, user *models.CurrentUser) ([]*models.EnrolledCourse, error) {
	enrollments, err := s.repo.Enrollment().ListByUser(ctx, nil, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return []*models.EnrolledCourse{}, nil
	}

	courseIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}

	totals, err := s.repo.Lesson().CountByCourses(ctx, nil, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}
	completions, err := s.repo.Progress().CompletedByUser(ctx, nil, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completions: %w", err)
	}
	completed := make(map[string]int, len(completions))
	for _, c := range completions {
		completed[c.CourseID] = c.Completed
	}

	synchronizer := s.registry.For(user.ID)
	result := make([]*models.EnrolledCourse, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Course == nil {
			continue
		}
		percentage := progress.Percentage(completed[e.CourseID], totals[e.CourseID])
		if synchronizer.HasLocalEdits(e.CourseID) {
			lessons, err := s.repo.Lesson().ListByCourse(ctx, nil, e.CourseID)
			if err != nil {
				return nil, fmt.Errorf("failed to list lessons: %w", err)
			}
			percentage = synchronizer.CourseProgress(ctx, e.CourseID, lessonIDs(lessons)).CompletionPercentage
		}
		result = append(result, &models.EnrolledCourse{
			Course:               e.Course,
			EnrolledAt:           e.CreatedAt,
			CompletionPercentage: percentage,
		})
	}
	return result, nil
}

func (s *enrollmentService) CheckAccess(ctx context.Context, userID, courseID string) error {
	return requireEnrollment(ctx, s.repo, userID, courseID)
}

func requireEnrollment(ctx context.Context, repo repositories.Repository, userID, courseID string) error {
	enrolled, err := repo.Enrollment().Exists(ctx, nil, userID, courseID)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}
