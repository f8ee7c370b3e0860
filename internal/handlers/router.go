package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/elearning-service/internal/metrics"
	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/services"
	"github.com/SAP-F-2025/elearning-service/internal/utils"
)

const healthTimeout = 3 * time.Second

type HandlerManager struct {
	authHandler       *AuthHandler
	shellHandler      *ShellHandler
	courseHandler     *CourseHandler
	lessonHandler     *LessonHandler
	enrollmentHandler *EnrollmentHandler
	progressHandler   *ProgressHandler
	profileHandler    *ProfileHandler
	authMiddleware    *AuthMiddleware
	serviceManager    services.ServiceManager
	metrics           *metrics.Metrics
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, m *metrics.Metrics) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Auth(), logger),
		shellHandler:      NewShellHandler(serviceManager.Shell(), logger),
		courseHandler:     NewCourseHandler(serviceManager.Course(), logger),
		lessonHandler:     NewLessonHandler(serviceManager.Lesson(), logger),
		enrollmentHandler: NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		progressHandler:   NewProgressHandler(serviceManager.Progress(), logger),
		profileHandler:    NewProfileHandler(serviceManager.Profile(), serviceManager.Invite(), logger),
		authMiddleware:    NewAuthMiddleware(serviceManager.Auth(), NewBaseHandler(logger)),
		serviceManager:    serviceManager,
		metrics:           m,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Session lifecycle, no bearer token required
	auth := v1.Group("/auth")
	{
		auth.POST("/sign-up", hm.authHandler.SignUp)
		auth.POST("/sign-in", hm.authHandler.SignIn)
		auth.POST("/refresh", hm.authHandler.Refresh)
		auth.POST("/sign-out", hm.authHandler.SignOut)
		auth.PUT("/password", hm.authMiddleware.Authenticate(), hm.authHandler.UpdatePassword)
		auth.GET("/me", hm.authMiddleware.Authenticate(), hm.authHandler.Me)
	}

	shell := v1.Group("/shell")
	{
		shell.GET("/stream", hm.shellHandler.Stream)
		shell.POST("/:id/continue", hm.shellHandler.Continue)
		shell.POST("/:id/signout", hm.shellHandler.SignOut)
	}

	api := v1.Group("")
	api.Use(hm.authMiddleware.Authenticate())
	{
		teacherOnly := hm.authMiddleware.RequireRole(models.RoleTeacher)
		studentOnly := hm.authMiddleware.RequireRole(models.RoleStudent)

		courses := api.Group("/courses")
		{
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/mine", teacherOnly, hm.courseHandler.ListMyCourses)
			courses.POST("", teacherOnly, hm.courseHandler.CreateCourse)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.PUT("/:id", teacherOnly, hm.courseHandler.UpdateCourse)
			courses.DELETE("/:id", teacherOnly, hm.courseHandler.DeleteCourse)
			courses.POST("/:id/cover", teacherOnly, hm.courseHandler.UploadCover)
			courses.GET("/:id/report", teacherOnly, hm.progressHandler.ExportReport)

			// Lessons
			courses.GET("/:id/lessons", hm.lessonHandler.ListLessons)
			courses.POST("/:id/lessons", teacherOnly, hm.lessonHandler.CreateLesson)
			courses.PUT("/:id/lessons/reorder", teacherOnly, hm.lessonHandler.ReorderLessons)
			courses.GET("/:id/lessons/:lesson_id", hm.lessonHandler.GetLesson)
			courses.PUT("/:id/lessons/:lesson_id", teacherOnly, hm.lessonHandler.UpdateLesson)
			courses.DELETE("/:id/lessons/:lesson_id", teacherOnly, hm.lessonHandler.DeleteLesson)

			// Enrollment and progress - Students only
			courses.POST("/:id/enroll", studentOnly, hm.enrollmentHandler.Enroll)
			courses.GET("/:id/access", studentOnly, hm.enrollmentHandler.CheckAccess)
			courses.GET("/:id/progress", studentOnly, hm.progressHandler.GetCourseProgress)
			courses.POST("/:id/lessons/:lesson_id/complete", studentOnly, hm.progressHandler.MarkComplete)
			courses.POST("/:id/lessons/:lesson_id/quiz", studentOnly, hm.progressHandler.SubmitQuiz)
		}

		api.GET("/enrollments/me", studentOnly, hm.enrollmentHandler.ListMyEnrollments)

		api.GET("/profile", hm.profileHandler.GetProfile)
		api.PUT("/profile", hm.profileHandler.UpdateProfile)

		invites := api.Group("/invites")
		{
			invites.POST("", teacherOnly, hm.profileHandler.CreateInvite)
			invites.GET("", teacherOnly, hm.profileHandler.ListInvites)
			invites.POST("/claim", studentOnly, hm.profileHandler.ClaimInvite)
		}
	}

	router.GET("/metrics", gin.WrapH(hm.metrics.Handler()))
	router.GET("/health", hm.health)
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":      status,
		"service":     "elearning-service",
		"open_shells": hm.serviceManager.Shell().Len(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
