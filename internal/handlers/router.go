package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/quizcraft/quiz-service/internal/config"
	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
	"github.com/quizcraft/quiz-service/internal/services"
	"github.com/quizcraft/quiz-service/internal/utils"
	"github.com/quizcraft/quiz-service/internal/validator"
)

type HandlerManager struct {
	quizHandler      *QuizHandler
	attemptHandler   *AttemptHandler
	dashboardHandler *DashboardHandler
	authMiddleware   *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		quizHandler:      NewQuizHandler(serviceManager.Quiz(), validator, logger),
		attemptHandler:   NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), serviceManager.Export(), logger),
		authMiddleware:   authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Quiz routes
		quizzes := v1.Group("/quizzes")
		{
			// Create/modify quizzes - Instructors and Admins only
			quizzes.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.CreateQuiz)
			quizzes.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.DeleteQuiz)
			quizzes.PATCH("/:id/settings", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.UpdateQuizSettings)
			quizzes.POST("/:id/publish", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.PublishQuiz)
			quizzes.POST("/:id/close", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.CloseQuiz)
			quizzes.GET("/mine", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.GetMyQuizzes)

			// View quizzes - All authenticated users
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/active", hm.quizHandler.GetActiveQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.GET("/:id/details", hm.quizHandler.GetQuizWithDetails)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/current/:quiz_id", hm.attemptHandler.GetCurrentAttempt)
			attempts.POST("/:id/answer", hm.attemptHandler.RecordAnswer)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.GetTimeRemaining)
			attempts.GET("/:id/review", hm.attemptHandler.ReviewAttempt)
			attempts.GET("/mine", hm.attemptHandler.GetMyAttempts)

			// Quiz-wide listings - Instructors and Admins only
			attempts.GET("/quiz/:quiz_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.attemptHandler.GetAttemptsByQuiz)
		}

		// Dashboard routes - Instructors and Admins only
		dashboard := v1.Group("/dashboard")
		dashboard.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin))
		{
			dashboard.GET("/stats", hm.dashboardHandler.GetInstructorStats)
			dashboard.GET("/quizzes", hm.dashboardHandler.GetQuizOverview)
			dashboard.GET("/quizzes/:id/stats", hm.dashboardHandler.GetQuizStats)
			dashboard.GET("/quizzes/:id/recent-attempts", hm.dashboardHandler.GetRecentAttempts)
			dashboard.GET("/quizzes/:id/export", hm.dashboardHandler.ExportQuizResults)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-service",
		})
	})
}
