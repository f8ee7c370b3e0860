package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
	}
}

// Enroll enrolls the calling student. Enrolling twice returns the existing enrollment.
// @Summary Enroll in course
// @Tags enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 201 {object} models.Enrollment
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /courses/{id}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Enrolling", "course_id", c.Param("id"), "user_id", user.ID)

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// ListMyEnrollments is the student dashboard: enrolled courses with completion
// @Summary My enrollments
// @Tags enrollments
// @Produce json
// @Success 200 {array} models.EnrolledCourse
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	courses, err := h.enrollmentService.ListMine(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// CheckAccess answers 204 when the caller may open the course content
// @Summary Check course access
// @Tags enrollments
// @Param id path string true "Course ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id}/access [get]
func (h *EnrollmentHandler) CheckAccess(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.enrollmentService.CheckAccess(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
