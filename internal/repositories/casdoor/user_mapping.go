package casdoor

import (
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

// Casdoor user properties written by this service
const (
	propertyRole             = "role"
	propertyFullName         = "full_name"
	propertyEmailConfirmedAt = "email_confirmed_at"
)

// convertCasdoorUser maps a Casdoor account onto the session user
func convertCasdoorUser(user *casdoorsdk.User) models.AuthUser {
	if user == nil {
		return models.AuthUser{}
	}

	authUser := models.AuthUser{
		ID:       user.Id,
		Owner:    user.Owner,
		Username: user.Name,
		Email:    user.Email,
		Metadata: models.UserMetadata{
			Name: firstNonBlank(user.DisplayName, user.Properties[propertyFullName]),
			Role: metadataRole(user),
		},
	}

	if raw := user.Properties[propertyEmailConfirmedAt]; raw != "" {
		if confirmedAt, err := time.Parse(time.RFC3339, raw); err == nil {
			authUser.EmailConfirmedAt = &confirmedAt
		}
	}

	return authUser
}

// metadataRole prefers the explicit role property, then Casdoor roles. Unknown
// values yield the empty role so identity derivation falls back further.
func metadataRole(user *casdoorsdk.User) models.UserRole {
	if role := mapCasdoorRole(user.Properties[propertyRole]); role != "" {
		return role
	}
	for _, r := range user.Roles {
		if r == nil {
			continue
		}
		if role := mapCasdoorRole(r.Name); role != "" {
			return role
		}
	}
	return mapCasdoorRole(user.Type)
}

func mapCasdoorRole(name string) models.UserRole {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "teacher", "instructor", "educator":
		return models.RoleTeacher
	case "student", "learner":
		return models.RoleStudent
	default:
		return ""
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
