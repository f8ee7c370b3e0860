package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
)

type LessonHandler struct {
	BaseHandler
	lessonService services.LessonService
}

func NewLessonHandler(lessonService services.LessonService, logger utils.Logger) *LessonHandler {
	return &LessonHandler{
		BaseHandler:   NewBaseHandler(logger),
		lessonService: lessonService,
	}
}

// CreateLesson appends a video or quiz lesson to a course
// @Summary Create lesson
// @Tags lessons
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param lesson body services.CreateLessonRequest true "Lesson data"
// @Success 201 {object} models.Lesson
// @Failure 400 {object} ErrorResponse
// @Router /courses/{id}/lessons [post]
func (h *LessonHandler) CreateLesson(c *gin.Context) {
	var req services.CreateLessonRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	lesson, err := h.lessonService.Create(c.Request.Context(), c.Param("id"), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lesson)
}

// ListLessons lists a course's lessons in order. Quiz answers are hidden from students.
// @Summary List lessons
// @Tags lessons
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {array} models.Lesson
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id}/lessons [get]
func (h *LessonHandler) ListLessons(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	lessons, err := h.lessonService.ListByCourse(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lessons)
}

// GetLesson returns one lesson
// @Summary Get lesson
// @Tags lessons
// @Produce json
// @Param id path string true "Course ID"
// @Param lesson_id path string true "Lesson ID"
// @Success 200 {object} models.Lesson
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/lessons/{lesson_id} [get]
func (h *LessonHandler) GetLesson(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	lesson, err := h.lessonService.Get(c.Request.Context(), c.Param("id"), c.Param("lesson_id"), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lesson)
}

// UpdateLesson applies a partial update
// @Summary Update lesson
// @Tags lessons
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param lesson_id path string true "Lesson ID"
// @Param lesson body services.UpdateLessonRequest true "Fields to change"
// @Success 200 {object} models.Lesson
// @Router /courses/{id}/lessons/{lesson_id} [put]
func (h *LessonHandler) UpdateLesson(c *gin.Context) {
	var req services.UpdateLessonRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	lesson, err := h.lessonService.Update(c.Request.Context(), c.Param("id"), c.Param("lesson_id"), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lesson)
}

// DeleteLesson removes a lesson and closes the gap in the ordering
// @Summary Delete lesson
// @Tags lessons
// @Param id path string true "Course ID"
// @Param lesson_id path string true "Lesson ID"
// @Success 204
// @Router /courses/{id}/lessons/{lesson_id} [delete]
func (h *LessonHandler) DeleteLesson(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.lessonService.Delete(c.Request.Context(), c.Param("id"), c.Param("lesson_id"), user); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ReorderLessons sets the order of every lesson of the course
// @Summary Reorder lessons
// @Tags lessons
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param order body services.ReorderLessonsRequest true "Lesson ids in the new order"
// @Success 200 {array} models.Lesson
// @Failure 422 {object} ErrorResponse
// @Router /courses/{id}/lessons/reorder [put]
func (h *LessonHandler) ReorderLessons(c *gin.Context) {
	var req services.ReorderLessonsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	lessons, err := h.lessonService.Reorder(c.Request.Context(), c.Param("id"), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lessons)
}
