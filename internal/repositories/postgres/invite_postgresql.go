package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"gorm.io/gorm"
)

type InvitePostgreSQL struct {
	db *gorm.DB
}

func NewInvitePostgreSQL(db *gorm.DB) repositories.InviteRepository {
	return &InvitePostgreSQL{db: db}
}

func (i *InvitePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return i.db
}

func (i *InvitePostgreSQL) Create(ctx context.Context, tx *gorm.DB, invite *models.TeacherInvite) error {
	if err := i.getDB(tx).WithContext(ctx).Create(invite).Error; err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

func (i *InvitePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TeacherInvite, error) {
	var invite models.TeacherInvite
	if err := i.getDB(tx).WithContext(ctx).First(&invite, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return &invite, nil
}

// Claim is a single conditional update so two claimants cannot both win
func (i *InvitePostgreSQL) Claim(ctx context.Context, tx *gorm.DB, id, userID string, now time.Time) error {
	result := i.getDB(tx).WithContext(ctx).
		Model(&models.TeacherInvite{}).
		Where("id = ? AND claimed_by IS NULL AND expires_at > ?", id, now).
		Updates(map[string]interface{}{
			"claimed_by": userID,
			"claimed_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to claim invite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrInviteUnavailable
	}
	return nil
}

func (i *InvitePostgreSQL) ListByCreator(ctx context.Context, tx *gorm.DB, creatorID string) ([]*models.TeacherInvite, error) {
	var invites []*models.TeacherInvite
	err := i.getDB(tx).WithContext(ctx).
		Where("created_by = ?", creatorID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}
