package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/elearning-service/internal/cache"
	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/elearning-service/internal/session"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
	"gorm.io/gorm"
)

// inviteRedeemer checks and consumes teacher invite codes inside a sign-up
type inviteRedeemer interface {
	verify(ctx context.Context, tx *gorm.DB, code string) (*models.TeacherInvite, error)
	claim(ctx context.Context, tx *gorm.DB, userID, code string) error
}

type authService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	provider  AuthProvider
	profiles  ProfileService
	invites   inviteRedeemer
	identity  *session.IdentityResolver
	// onSignOut drops per-user state held by other services
	onSignOut func(userID string)
}

func NewAuthService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, provider AuthProvider, profiles ProfileService, invites inviteRedeemer) AuthService {
	return &authService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		provider:  provider,
		profiles:  profiles,
		invites:   invites,
		identity:  session.NewIdentityResolver(profiles, logger),
	}
}

// SignUp creates the provider account and its profile. A teacher sign-up must
// carry a valid invite, checked before the provider is contacted.
func (s *authService) SignUp(ctx context.Context, req *SignUpRequest) (*models.CurrentUser, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	wantsTeacher := req.Role == models.RoleTeacher
	if wantsTeacher {
		if _, err := s.invites.verify(ctx, nil, req.InviteCode); err != nil {
			return nil, err
		}
	}

	authUser, err := s.provider.SignUp(ctx, casdoor.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     models.RoleStudent,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	profile := &models.Profile{ID: authUser.ID, FullName: req.FullName, Role: models.RoleStudent}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Profile().Create(ctx, tx, profile); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		if wantsTeacher {
			if err := s.invites.claim(ctx, tx, authUser.ID, req.InviteCode); err != nil {
				return err
			}
			profile.Role = models.RoleTeacher
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Sign-up profile setup failed", "user_id", authUser.ID, "error", err)
		return nil, err
	}

	s.logger.Info("User signed up", "user_id", authUser.ID, "role", profile.Role)
	return session.DeriveUser(*authUser, profile), nil
}

func (s *authService) SignIn(ctx context.Context, req *SignInRequest) (*models.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	sess, err := s.provider.SignInWithCode(ctx, req.SessionID, req.Code, req.State)
	if err != nil {
		if errors.Is(err, casdoor.ErrInvalidToken) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	if _, err := s.profiles.Ensure(ctx, sess.User); err != nil {
		s.logger.Warn("Failed to ensure profile", "user_id", sess.User.ID, "error", err)
	}
	return sess, nil
}

func (s *authService) Refresh(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.provider.Refresh(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) || errors.Is(err, casdoor.ErrInvalidToken) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}
	return sess, nil
}

// SignOut never fails the caller; provider errors are only logged
func (s *authService) SignOut(ctx context.Context, sessionID string) error {
	if s.onSignOut != nil {
		if sess, err := s.provider.GetSession(ctx, sessionID); err == nil && sess != nil {
			s.onSignOut(sess.User.ID)
		}
	}
	if err := s.provider.SignOut(ctx, sessionID); err != nil {
		s.logger.Warn("Sign-out failed at provider", "session_id", sessionID, "error", err)
	}
	return nil
}

// UpdatePassword validates length and confirmation before any provider call
func (s *authService) UpdatePassword(ctx context.Context, sessionID string, req *UpdatePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return validationError(err)
	}

	err := s.provider.UpdatePassword(ctx, sessionID, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		s.logger.Info("Password updated", "session_id", sessionID)
		return nil
	case errors.Is(err, cache.ErrSessionNotFound):
		return ErrUnauthorized
	case errors.Is(err, casdoor.ErrProviderRejected):
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	default:
		return fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (*models.CurrentUser, error) {
	authUser, err := s.provider.ParseAccessToken(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return s.identity.Resolve(ctx, *authUser), nil
}
