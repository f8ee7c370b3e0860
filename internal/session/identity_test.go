package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

func strPtr(s string) *string { return &s }

func TestDeriveUserPrecedence(t *testing.T) {
	base := models.AuthUser{ID: "u1", Email: "maria.lopez@example.com"}
	withMeta := base
	withMeta.Metadata = models.UserMetadata{Name: "Meta Name", Role: models.RoleTeacher}
	profile := &models.Profile{ID: "u1", FullName: "Profile Name", Role: models.RoleStudent, AvatarURL: strPtr("https://cdn/a.png")}

	tests := []struct {
		name     string
		user     models.AuthUser
		profile  *models.Profile
		wantName string
		wantRole models.UserRole
	}{
		{name: "profile and metadata", user: withMeta, profile: profile, wantName: "Profile Name", wantRole: models.RoleStudent},
		{name: "profile only", user: base, profile: profile, wantName: "Profile Name", wantRole: models.RoleStudent},
		{name: "metadata only", user: withMeta, wantName: "Meta Name", wantRole: models.RoleTeacher},
		{name: "neither", user: base, wantName: "maria.lopez", wantRole: models.RoleStudent},
		{name: "empty profile fields fall through", user: withMeta, profile: &models.Profile{ID: "u1"}, wantName: "Meta Name", wantRole: models.RoleTeacher},
		{name: "no email", user: models.AuthUser{ID: "u2"}, wantName: DefaultDisplayName, wantRole: models.RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveUser(tt.user, tt.profile)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantRole, got.Role)
			assert.Equal(t, tt.user.ID, got.ID)
		})
	}
}

func TestDeriveUserAvatarFromProfile(t *testing.T) {
	got := DeriveUser(models.AuthUser{ID: "u1"}, &models.Profile{AvatarURL: strPtr("https://cdn/a.png")})
	if assert.NotNil(t, got.Avatar) {
		assert.Equal(t, "https://cdn/a.png", *got.Avatar)
	}

	assert.Nil(t, DeriveUser(models.AuthUser{ID: "u1"}, nil).Avatar)
}

type failingProfiles struct{ calls int }

func (f *failingProfiles) LoadProfile(context.Context, string) (*models.Profile, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestResolverProfileFailureIsNotFatal(t *testing.T) {
	profiles := &failingProfiles{}
	resolver := NewIdentityResolver(profiles, nil)

	got := resolver.Resolve(context.Background(), models.AuthUser{
		ID:       "u1",
		Email:    "ana@example.com",
		Metadata: models.UserMetadata{Role: models.RoleTeacher},
	})

	assert.Equal(t, 1, profiles.calls)
	assert.Equal(t, "ana", got.Name)
	assert.Equal(t, models.RoleTeacher, got.Role)
}
