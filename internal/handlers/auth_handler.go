package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
	}
}

// SignUp registers a new account
// @Summary Sign up
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.SignUpRequest true "Sign-up data"
// @Success 201 {object} models.CurrentUser
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.SignUpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Signing up", "email", req.Email, "role", req.Role)

	user, err := h.authService.SignUp(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// SignIn completes the OAuth callback and opens a session
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.SignInRequest true "Authorization code"
// @Success 200 {object} models.Session
// @Failure 401 {object} ErrorResponse
// @Router /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req services.SignInRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.SessionID = sessionIDFrom(c, req.SessionID)

	sess, err := h.authService.SignIn(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header(sessionHeader, sess.ID)
	c.JSON(http.StatusOK, sess)
}

// Refresh exchanges the stored refresh token for a new access token
// @Summary Refresh session
// @Tags auth
// @Produce json
// @Param X-Session-ID header string true "Session ID"
// @Success 200 {object} models.Session
// @Failure 401 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	sessionID := sessionIDFrom(c, "")
	if sessionID == "" {
		h.RespondWithError(c, http.StatusUnauthorized, "session id missing", nil)
		return
	}

	sess, err := h.authService.Refresh(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

// SignOut ends the session. It succeeds even when the provider call fails.
// @Summary Sign out
// @Tags auth
// @Param X-Session-ID header string true "Session ID"
// @Success 204
// @Router /auth/sign-out [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	if sessionID := sessionIDFrom(c, ""); sessionID != "" {
		_ = h.authService.SignOut(c.Request.Context(), sessionID)
	}
	c.Status(http.StatusNoContent)
}

// UpdatePassword changes the signed-in user's password
// @Summary Update password
// @Tags auth
// @Accept json
// @Param body body services.UpdatePasswordRequest true "Passwords"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /auth/password [put]
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req services.UpdatePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	sessionID := sessionIDFrom(c, "")
	if sessionID == "" {
		h.RespondWithError(c, http.StatusUnauthorized, "session id missing", nil)
		return
	}

	if err := h.authService.UpdatePassword(c.Request.Context(), sessionID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me returns the identity derived for the bearer token
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.CurrentUser
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}
