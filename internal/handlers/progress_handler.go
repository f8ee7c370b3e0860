package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// MarkComplete records a lesson as completed or not. The write is synced in the background.
// @Summary Mark lesson complete
// @Tags progress
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param lesson_id path string true "Lesson ID"
// @Param body body services.MarkCompleteRequest true "Completion flag"
// @Success 202 {object} models.LessonProgress
// @Router /courses/{id}/lessons/{lesson_id}/complete [post]
func (h *ProgressHandler) MarkComplete(c *gin.Context) {
	var req services.MarkCompleteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	progress, err := h.progressService.MarkComplete(c.Request.Context(), c.Param("id"), c.Param("lesson_id"), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, progress)
}

// SubmitQuiz scores the answers and records the lesson as completed
// @Summary Submit quiz
// @Tags progress
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param lesson_id path string true "Lesson ID"
// @Param body body services.SubmitQuizRequest true "Selected option per question"
// @Success 200 {object} models.QuizResult
// @Router /courses/{id}/lessons/{lesson_id}/quiz [post]
func (h *ProgressHandler) SubmitQuiz(c *gin.Context) {
	var req services.SubmitQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	result, err := h.progressService.SubmitQuiz(c.Request.Context(), c.Param("id"), c.Param("lesson_id"), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCourseProgress returns the caller's per-lesson state and completion for a course
// @Summary Course progress
// @Tags progress
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.CourseProgress
// @Router /courses/{id}/progress [get]
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	progress, err := h.progressService.CourseProgress(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// ExportReport downloads the course progress report as a spreadsheet
// @Summary Export progress report
// @Tags progress
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Course ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id}/report [get]
func (h *ProgressHandler) ExportReport(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	courseID := c.Param("id")
	h.LogRequest(c, "Exporting progress report", "course_id", courseID, "user_id", user.ID)

	data, err := h.progressService.ExportReport(c.Request.Context(), courseID, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "progress-"+courseID+".xlsx"))
	c.Data(http.StatusOK, xlsxContentType, data)
}
