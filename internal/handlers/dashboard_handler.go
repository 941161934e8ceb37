package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quizcraft/quiz-service/internal/services"
	"github.com/quizcraft/quiz-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
	exportService    services.ExportService
}

func NewDashboardHandler(
	dashboardService services.DashboardService,
	exportService services.ExportService,
	logger utils.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
		exportService:    exportService,
	}
}

// ===== DASHBOARD ENDPOINTS =====

// GetInstructorStats returns overall statistics for the authenticated instructor
// @Summary Get instructor statistics
// @Description Get quiz and attempt counts for the instructor's dashboard
// @Tags dashboard
// @Produce json
// @Success 200 {object} repositories.InstructorStats
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetInstructorStats(c *gin.Context) {
	h.LogRequest(c, "Getting instructor stats")

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	stats, err := h.dashboardService.GetInstructorStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetQuizOverview returns one summary row per quiz owned by the instructor
// @Summary Get quiz overview
// @Description Get per-quiz question counts, attempt counts and average scores
// @Tags dashboard
// @Produce json
// @Success 200 {array} models.QuizSummary
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /dashboard/quizzes [get]
func (h *DashboardHandler) GetQuizOverview(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	overview, err := h.dashboardService.GetQuizOverview(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetQuizStats returns aggregate and per-question statistics for one quiz
// @Summary Get quiz statistics
// @Description Get attempt aggregates, score distribution and per-question answer breakdowns
// @Tags dashboard
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} models.QuizStats
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Quiz not found"
// @Router /dashboard/quizzes/{id}/stats [get]
func (h *DashboardHandler) GetQuizStats(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	h.LogRequest(c, "Getting quiz stats", "quiz_id", quizID)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	stats, err := h.dashboardService.GetQuizStats(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRecentAttempts returns the most recent finished attempts at a quiz
// @Summary Get recent attempts
// @Tags dashboard
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param limit query int false "Number of attempts to return (default: 10, max: 50)"
// @Success 200 {array} repositories.RecentAttemptData
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /dashboard/quizzes/{id}/recent-attempts [get]
func (h *DashboardHandler) GetRecentAttempts(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	attempts, err := h.dashboardService.GetRecentAttempts(c.Request.Context(), quizID, limit, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// ExportQuizResults streams an xlsx workbook of a quiz's results
// @Summary Export quiz results
// @Description Download all finished attempts at a quiz as an Excel file
// @Tags dashboard
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Quiz ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Quiz not found"
// @Router /dashboard/quizzes/{id}/export [get]
func (h *DashboardHandler) ExportQuizResults(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	h.LogRequest(c, "Exporting quiz results", "quiz_id", quizID)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	data, filename, err := h.exportService.ExportQuizResults(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
