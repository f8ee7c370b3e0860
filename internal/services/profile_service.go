package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/session"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
	"gorm.io/gorm"
)

type profileService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewProfileService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) ProfileService {
	return &profileService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// LoadProfile returns (nil, nil) when the user has no profile row yet
func (s *profileService) LoadProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.Profile().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

func (s *profileService) Get(ctx context.Context, user *models.CurrentUser) (*models.Profile, error) {
	profile, err := s.repo.Profile().GetByID(ctx, nil, user.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// Ensure creates the profile of a freshly authenticated user from provider
// metadata. An existing profile is returned unchanged.
func (s *profileService) Ensure(ctx context.Context, user models.AuthUser) (*models.Profile, error) {
	derived := session.DeriveUser(user, nil)
	profile := &models.Profile{
		ID:       user.ID,
		FullName: derived.Name,
		// Teacher role is only granted through an invite
		Role: models.RoleStudent,
	}

	if err := s.repo.Profile().Create(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	stored, err := s.repo.Profile().GetByID(ctx, nil, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile: %w", err)
	}
	return stored, nil
}

func (s *profileService) Update(ctx context.Context, user *models.CurrentUser, req *ProfileUpdateRequest) (*models.Profile, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	s.logger.Info("Updating profile", "user_id", user.ID)

	var updated *models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.repo.Profile().GetByID(ctx, tx, user.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}

		if req.FullName != nil {
			profile.FullName = strings.TrimSpace(*req.FullName)
		}
		if req.AvatarURL != nil {
			avatar := strings.TrimSpace(*req.AvatarURL)
			profile.AvatarURL = &avatar
		}

		if err := s.repo.Profile().Update(ctx, tx, profile); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
