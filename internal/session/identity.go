package session

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

// DefaultDisplayName is used when neither profile, metadata nor email yield a name
const DefaultDisplayName = "User"

// ProfileLoader fetches the persisted profile of a user. A missing profile is (nil, nil).
type ProfileLoader interface {
	LoadProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// DeriveUser merges profile, provider metadata and email fallbacks, highest
// priority first. Name and role are never empty.
func DeriveUser(user models.AuthUser, profile *models.Profile) *models.CurrentUser {
	current := &models.CurrentUser{
		ID:    user.ID,
		Email: user.Email,
		Role:  models.RoleStudent,
	}

	var profileName string
	if profile != nil {
		profileName = profile.FullName
		if profile.AvatarURL != nil && *profile.AvatarURL != "" {
			avatar := *profile.AvatarURL
			current.Avatar = &avatar
		}
	}

	current.Name = firstNonEmpty(profileName, user.Metadata.Name, emailLocalPart(user.Email), DefaultDisplayName)

	switch {
	case profile != nil && profile.Role.Valid():
		current.Role = profile.Role
	case user.Metadata.Role.Valid():
		current.Role = user.Metadata.Role
	}

	return current
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// IdentityResolver builds a CurrentUser for a session user. Profile lookup
// failures degrade to metadata and email defaults.
type IdentityResolver struct {
	profiles ProfileLoader
	logger   *slog.Logger
}

func NewIdentityResolver(profiles ProfileLoader, logger *slog.Logger) *IdentityResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityResolver{profiles: profiles, logger: logger}
}

func (r *IdentityResolver) Resolve(ctx context.Context, user models.AuthUser) *models.CurrentUser {
	var profile *models.Profile
	if r.profiles != nil {
		p, err := r.profiles.LoadProfile(ctx, user.ID)
		if err != nil {
			r.logger.Warn("Profile fetch failed, using provider metadata", "user_id", user.ID, "error", err)
		} else {
			profile = p
		}
	}
	return DeriveUser(user, profile)
}
