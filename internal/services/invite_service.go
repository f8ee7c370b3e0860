package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultInviteTTL = 72 * time.Hour

type inviteService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewInviteService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) InviteService {
	return &inviteService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

// Create mints a single-use code "<invite id>.<secret>". Only the bcrypt hash
// of the secret is stored, so the code is shown once.
func (s *inviteService) Create(ctx context.Context, user *models.CurrentUser, req *CreateInviteRequest) (*models.InviteResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}
	if !user.IsTeacher() {
		return nil, NewPermissionError(user.ID, "", "invite", "create", "teacher role required")
	}

	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash invite secret: %w", err)
	}

	ttl := defaultInviteTTL
	if req.ExpiresInHours > 0 {
		ttl = time.Duration(req.ExpiresInHours) * time.Hour
	}

	invite := &models.TeacherInvite{
		ID:         uuid.NewString(),
		SecretHash: string(hash),
		CreatedBy:  user.ID,
		ExpiresAt:  s.now().UTC().Add(ttl),
	}
	if err := s.repo.Invite().Create(ctx, nil, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	s.logger.Info("Teacher invite created", "invite_id", invite.ID, "created_by", user.ID)
	return &models.InviteResponse{Code: invite.ID + "." + secret, ExpiresAt: invite.ExpiresAt}, nil
}

// Claim upgrades the caller to teacher
func (s *inviteService) Claim(ctx context.Context, user *models.CurrentUser, req *ClaimInviteRequest) (*models.Profile, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	var profile *models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.claim(ctx, tx, user.ID, req.Code); err != nil {
			return err
		}
		var err error
		profile, err = s.repo.Profile().GetByID(ctx, tx, user.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Teacher invite claimed", "user_id", user.ID)
	return profile, nil
}

func (s *inviteService) ListMine(ctx context.Context, user *models.CurrentUser) ([]*models.TeacherInvite, error) {
	if !user.IsTeacher() {
		return nil, NewPermissionError(user.ID, "", "invite", "list", "teacher role required")
	}
	invites, err := s.repo.Invite().ListByCreator(ctx, nil, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

// verify checks a code without consuming it
func (s *inviteService) verify(ctx context.Context, tx *gorm.DB, code string) (*models.TeacherInvite, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(code), ".")
	if !ok || id == "" || secret == "" {
		return nil, ErrInvalidInvite
	}

	invite, err := s.repo.Invite().GetByID(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidInvite
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	if !invite.Usable(s.now()) {
		return nil, ErrInvalidInvite
	}
	if err := bcrypt.CompareHashAndPassword([]byte(invite.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidInvite
	}
	return invite, nil
}

// claim consumes the invite and sets the teacher role inside tx
func (s *inviteService) claim(ctx context.Context, tx *gorm.DB, userID, code string) error {
	invite, err := s.verify(ctx, tx, code)
	if err != nil {
		return err
	}

	if err := s.repo.Invite().Claim(ctx, tx, invite.ID, userID, s.now().UTC()); err != nil {
		if errors.Is(err, repositories.ErrInviteUnavailable) {
			return ErrInvalidInvite
		}
		return fmt.Errorf("failed to claim invite: %w", err)
	}
	if err := s.repo.Profile().UpdateRole(ctx, tx, userID, models.RoleTeacher); err != nil {
		return fmt.Errorf("failed to grant teacher role: %w", err)
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
