package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
)

type ErrorResponse = models.ErrorResponse
type SuccessResponse = models.SuccessResponse

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BaseHandler carries the request-scoped logging and error rendering every handler shares
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.FromContext(c.Request.Context(), h.logger)
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	h.log(c).Info(msg, append(args, "method", c.Request.Method, "path", c.FullPath())...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	h.log(c).Error(msg, append(args, "error", err, "path", c.FullPath())...)
}

// RespondWithError writes the standard error body and aborts the chain
func (h *BaseHandler) RespondWithError(c *gin.Context, status int, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

func (h *BaseHandler) respondValidation(c *gin.Context, errs validator.ValidationErrors) {
	fields := make([]models.ValidationErrorResponse, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, models.ValidationErrorResponse{Field: e.Field, Message: e.Message, Value: e.Value})
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:            http.StatusText(http.StatusBadRequest),
		Message:          "Validation failed",
		Details:          errs,
		Timestamp:        time.Now().UTC(),
		Path:             c.Request.URL.Path,
		ValidationErrors: fields,
	})
}

// bindJSON decodes the body, answering 400 itself on failure
func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return false
	}
	return true
}

// currentUser returns the authenticated user, answering 401 when there is none
func (h *BaseHandler) currentUser(c *gin.Context) (*models.CurrentUser, bool) {
	user, err := GetUserFromContext(c)
	if err != nil {
		h.RespondWithError(c, http.StatusUnauthorized, "User not authenticated", nil)
		return nil, false
	}
	return user, true
}

// handleServiceError maps service errors onto HTTP statuses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.respondValidation(c, validationErrors)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "Access denied", map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidationFailed):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		h.RespondWithError(c, http.StatusUnauthorized, "Not signed in", nil)
	case errors.Is(err, services.ErrForbidden):
		h.RespondWithError(c, http.StatusForbidden, "Access denied", nil)
	case errors.Is(err, services.ErrStudentOnly), errors.Is(err, services.ErrTeacherOnly),
		errors.Is(err, services.ErrNotEnrolled):
		h.RespondWithError(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, services.ErrProfileNotFound), errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrLessonNotFound), errors.Is(err, services.ErrShellNotFound):
		h.RespondWithError(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, services.ErrCourseNotPublished), errors.Is(err, services.ErrLessonOrder):
		h.RespondWithError(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidInvite):
		h.RespondWithError(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCover):
		h.RespondWithError(c, http.StatusUnsupportedMediaType, err.Error(), nil)
	case errors.Is(err, services.ErrCoverTooLarge):
		h.RespondWithError(c, http.StatusRequestEntityTooLarge, err.Error(), nil)
	case errors.Is(err, services.ErrProviderFailure):
		h.LogError(c, err, "Auth provider failure")
		h.RespondWithError(c, http.StatusBadGateway, "Auth provider unavailable", nil)
	default:
		h.LogError(c, err, "Unhandled service error")
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// pageParams reads page/size query values into a limit and offset
func pageParams(c *gin.Context) (limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return size, (page - 1) * size
}
