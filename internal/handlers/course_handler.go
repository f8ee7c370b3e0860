package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
)

// maxUploadBytes bounds how much of a cover upload is read; the service applies the configured limit
const maxUploadBytes = 32 << 20

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
	}
}

// CreateCourse creates a course owned by the calling teacher
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course data"
// @Success 201 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// ListCourses lists the published catalog
// @Summary List published courses
// @Tags courses
// @Produce json
// @Param category query string false "Category"
// @Param q query string false "Search text"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} models.CourseListResponse
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	response, err := h.courseService.List(c.Request.Context(), courseFilters(c), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListMyCourses lists the calling teacher's courses in every status
// @Summary List my courses
// @Tags courses
// @Produce json
// @Success 200 {object} models.CourseListResponse
// @Router /courses/mine [get]
func (h *CourseHandler) ListMyCourses(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := courseFilters(c)
	if status := models.CourseStatus(c.Query("status")); status != "" {
		filters.Status = &status
	}

	response, err := h.courseService.ListMine(c.Request.Context(), filters, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetCourse returns one course
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.Course
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	course, err := h.courseService.Get(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// UpdateCourse applies a partial update
// @Summary Update course
// @Tags courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param course body services.UpdateCourseRequest true "Fields to change"
// @Success 200 {object} models.Course
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [put]
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	var req services.UpdateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating course", "course_id", c.Param("id"), "user_id", user.ID)

	course, err := h.courseService.Update(c.Request.Context(), c.Param("id"), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse removes a course with its lessons, enrollments and progress
// @Summary Delete course
// @Tags courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id} [delete]
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.courseService.Delete(c.Request.Context(), c.Param("id"), user); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UploadCover stores a cover image sent as the multipart field "cover"
// @Summary Upload course cover
// @Tags courses
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param cover formData file true "Cover image"
// @Success 200 {object} models.Course
// @Failure 413 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Router /courses/{id}/cover [post]
func (h *CourseHandler) UploadCover(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	header, err := c.FormFile("cover")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "cover file missing", err.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "cover file unreadable", err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "cover file unreadable", err.Error())
		return
	}

	course, err := h.courseService.UploadCover(c.Request.Context(), c.Param("id"), header.Filename, data, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

func courseFilters(c *gin.Context) repositories.CourseFilters {
	limit, offset := pageParams(c)
	filters := repositories.CourseFilters{
		Query:     c.Query("q"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if category := c.Query("category"); category != "" {
		filters.Category = &category
	}
	return filters
}
