package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
)

type ProfileHandler struct {
	BaseHandler
	profileService services.ProfileService
	inviteService  services.InviteService
}

func NewProfileHandler(profileService services.ProfileService, inviteService services.InviteService, logger utils.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    NewBaseHandler(logger),
		profileService: profileService,
		inviteService:  inviteService,
	}
}

// GetProfile returns the caller's profile
// @Summary Get my profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 404 {object} ErrorResponse
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	profile, err := h.profileService.Get(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile changes the display name or avatar
// @Summary Update my profile
// @Tags profile
// @Accept json
// @Produce json
// @Param body body services.ProfileUpdateRequest true "Fields to change"
// @Success 200 {object} models.Profile
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req services.ProfileUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	profile, err := h.profileService.Update(c.Request.Context(), user, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// CreateInvite mints a single-use teacher invite code
// @Summary Create teacher invite
// @Tags invites
// @Accept json
// @Produce json
// @Param body body services.CreateInviteRequest false "Expiry"
// @Success 201 {object} models.InviteResponse
// @Failure 403 {object} ErrorResponse
// @Router /invites [post]
func (h *ProfileHandler) CreateInvite(c *gin.Context) {
	var req services.CreateInviteRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	invite, err := h.inviteService.Create(c.Request.Context(), user, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invite)
}

// ListInvites lists invites the caller has minted
// @Summary List my invites
// @Tags invites
// @Produce json
// @Success 200 {array} models.TeacherInvite
// @Router /invites [get]
func (h *ProfileHandler) ListInvites(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	invites, err := h.inviteService.ListMine(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, invites)
}

// ClaimInvite promotes the caller to teacher
// @Summary Claim teacher invite
// @Tags invites
// @Accept json
// @Produce json
// @Param body body services.ClaimInviteRequest true "Invite code"
// @Success 200 {object} models.Profile
// @Failure 400 {object} ErrorResponse
// @Router /invites/claim [post]
func (h *ProfileHandler) ClaimInvite(c *gin.Context) {
	var req services.ClaimInviteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	profile, err := h.inviteService.Claim(c.Request.Context(), user, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
