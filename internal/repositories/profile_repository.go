package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"gorm.io/gorm"
)

// ProfileRepository persists display profiles keyed by the auth provider user id
type ProfileRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Profile, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Profile, error)
	// Create inserts the profile, leaving an existing row untouched
	Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
	Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
	UpdateRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) error
}

// InviteRepository stores single-use teacher invites
type InviteRepository interface {
	Create(ctx context.Context, tx *gorm.DB, invite *models.TeacherInvite) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TeacherInvite, error)
	// Claim marks the invite used by userID. Returns ErrInviteUnavailable if it
	// was claimed concurrently or expired.
	Claim(ctx context.Context, tx *gorm.DB, id, userID string, now time.Time) error
	ListByCreator(ctx context.Context, tx *gorm.DB, creatorID string) ([]*models.TeacherInvite, error)
}
