package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/services"
)

const (
	sessionHeader = "X-Session-ID"

	ctxUserID    = "user_id"
	ctxUser      = "user"
	ctxUserRole  = "user_role"
	ctxUserEmail = "user_email"
	ctxSessionID = "session_id"
)

// AuthMiddleware authenticates bearer access tokens issued by the hosted auth provider
type AuthMiddleware struct {
	BaseHandler
	auth services.AuthService
}

func NewAuthMiddleware(auth services.AuthService, base BaseHandler) *AuthMiddleware {
	return &AuthMiddleware{BaseHandler: base, auth: auth}
}

// Authenticate rejects requests without a valid access token
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			am.RespondWithError(c, http.StatusUnauthorized, err.Error(), nil)
			return
		}

		user, err := am.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				am.RespondWithError(c, http.StatusUnauthorized, "invalid or expired token", nil)
				return
			}
			am.handleServiceError(c, err)
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxUser, user)
		c.Set(ctxUserRole, user.Role)
		c.Set(ctxUserEmail, user.Email)
		if sessionID := c.GetHeader(sessionHeader); sessionID != "" {
			c.Set(ctxSessionID, sessionID)
		}

		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles
func (am *AuthMiddleware) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			am.RespondWithError(c, http.StatusForbidden, err.Error(), nil)
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		am.RespondWithError(c, http.StatusForbidden, fmt.Sprintf("insufficient permissions, required role: %v", roles), nil)
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// sessionIDFrom prefers the X-Session-ID header over the given fallback
func sessionIDFrom(c *gin.Context, fallback string) string {
	if id := c.GetHeader(sessionHeader); id != "" {
		return id
	}
	return fallback
}

func GetUserFromContext(c *gin.Context) (*models.CurrentUser, error) {
	user, exists := c.Get(ctxUser)
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	current, ok := user.(*models.CurrentUser)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return current, nil
}

func GetUserIDFromContext(c *gin.Context) (string, error) {
	id := c.GetString(ctxUserID)
	if id == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return id, nil
}

func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get(ctxUserRole)
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}
