package services

import (
	"context"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/progress"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
)

// progressStore exposes the progress repository to the synchronizer
type progressStore struct {
	repo repositories.Repository
}

var _ progress.Store = progressStore{}

func NewProgressStore(repo repositories.Repository) progress.Store {
	return progressStore{repo: repo}
}

func (s progressStore) Upsert(ctx context.Context, record *models.ProgressRecord) error {
	return s.repo.Progress().Upsert(ctx, nil, record)
}

func (s progressStore) Get(ctx context.Context, userID, courseID, lessonID string) (*models.ProgressRecord, error) {
	record, err := s.repo.Progress().Get(ctx, nil, userID, courseID, lessonID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (s progressStore) ListByUserCourse(ctx context.Context, userID, courseID string) ([]*models.ProgressRecord, error) {
	return s.repo.Progress().ListByUserCourse(ctx, nil, userID, courseID)
}
