package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

func (p *ProgressPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

// Upsert is INSERT ... ON CONFLICT (user_id, course_id, lesson_id) DO UPDATE ...
// WHERE student_progress.version < EXCLUDED.version. Zero affected rows means a
// newer write already landed.
func (p *ProgressPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, record *models.ProgressRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	result := p.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"completed", "score", "version", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: `"student_progress"."version" < "excluded"."version"`},
			}},
		}).
		Create(record)
	if result.Error != nil {
		if repositories.IsRejectedError(result.Error) {
			return fmt.Errorf("failed to upsert progress: %w: %w", repositories.ErrWriteRejected, result.Error)
		}
		return fmt.Errorf("failed to upsert progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrStaleWrite
	}
	return nil
}

func (p *ProgressPostgreSQL) Get(ctx context.Context, tx *gorm.DB, userID, courseID, lessonID string) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	err := p.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND lesson_id = ?", userID, courseID, lessonID).
		First(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &record, nil
}

func (p *ProgressPostgreSQL) ListByUserCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) ([]*models.ProgressRecord, error) {
	var records []*models.ProgressRecord
	err := p.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return records, nil
}

// CompletedByUser counts completed lessons per course, ignoring progress on deleted lessons
func (p *ProgressPostgreSQL) CompletedByUser(ctx context.Context, tx *gorm.DB, userID string) ([]repositories.CourseCompletion, error) {
	var rows []repositories.CourseCompletion
	err := p.getDB(tx).WithContext(ctx).
		Table("student_progress AS sp").
		Select("sp.course_id AS course_id, COUNT(*) AS completed").
		Joins("JOIN lessons l ON l.id = sp.lesson_id AND l.course_id = sp.course_id").
		Where("sp.user_id = ? AND sp.completed = ?", userID, true).
		Group("sp.course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count completed lessons: %w", err)
	}
	return rows, nil
}

func (p *ProgressPostgreSQL) ReportByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]repositories.ProgressReportRow, error) {
	var rows []repositories.ProgressReportRow
	err := p.getDB(tx).WithContext(ctx).
		Table("student_progress AS sp").
		Select("sp.user_id AS user_id, COALESCE(pr.full_name, '') AS full_name, sp.lesson_id AS lesson_id, sp.completed AS completed, sp.score AS score, sp.updated_at AS updated_at").
		Joins("LEFT JOIN profiles pr ON pr.id = sp.user_id").
		Where("sp.course_id = ?", courseID).
		Order("sp.user_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build progress report: %w", err)
	}
	return rows, nil
}
