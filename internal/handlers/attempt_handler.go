package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
	"github.com/quizcraft/quiz-service/internal/services"
	"github.com/quizcraft/quiz-service/internal/utils"
	"github.com/quizcraft/quiz-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
	}
}

// StartAttempt starts a new quiz attempt, or resumes the student's
// active attempt at the same quiz when one exists
// @Summary Start quiz attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest true "Start attempt data"
// @Success 201 {object} services.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting quiz attempt")

	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetCurrentAttempt returns the student's active attempt at a quiz
// @Summary Get current attempt
// @Tags attempts
// @Produce json
// @Param quiz_id path uint true "Quiz ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /attempts/current/{quiz_id} [get]
func (h *AttemptHandler) GetCurrentAttempt(c *gin.Context) {
	quizID := h.parseIDParam(c, "quiz_id")
	if quizID == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	attempt, err := h.attemptService.GetCurrent(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// RecordAnswer records an answer for a question in an active attempt
// @Summary Record answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answer body services.RecordAnswerRequest true "Answer data"
// @Success 200 {object} services.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /attempts/{id}/answer [post]
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Recording answer", "attempt_id", attemptID)

	var req services.RecordAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	attempt, err := h.attemptService.RecordAnswer(c.Request.Context(), attemptID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// SubmitAttempt finalizes an attempt and returns the scored result
// @Summary Submit quiz attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Submitting quiz attempt", "attempt_id", attemptID)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTimeRemaining returns the seconds left on an attempt's timer
// @Summary Get time remaining
// @Description Returns remaining seconds for a timed attempt, -1 for untimed
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/time-remaining [get]
func (h *AttemptHandler) GetTimeRemaining(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	remaining, err := h.attemptService.GetTimeRemaining(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempt_id":        attemptID,
		"remaining_seconds": remaining,
	})
}

// ReviewAttempt returns the scored breakdown of a finished attempt
// @Summary Review attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResult
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/review [get]
func (h *AttemptHandler) ReviewAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	result, err := h.attemptService.Review(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAttemptsByQuiz lists attempts at a quiz (owner and admins only)
// @Summary List attempts by quiz
// @Tags attempts
// @Produce json
// @Param quiz_id path uint true "Quiz ID"
// @Success 200 {object} models.PaginatedResponse
// @Failure 403 {object} ErrorResponse
// @Router /attempts/quiz/{quiz_id} [get]
func (h *AttemptHandler) GetAttemptsByQuiz(c *gin.Context) {
	quizID := h.parseIDParam(c, "quiz_id")
	if quizID == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	filters := attemptFilters(parseAttemptParams(c))

	attempts, err := h.attemptService.GetByQuiz(c.Request.Context(), quizID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginate(attempts.Attempts, len(attempts.Attempts), attempts.Total, attempts.Page, attempts.Size))
}

// GetMyAttempts lists the authenticated student's own attempts
// @Summary List own attempts
// @Tags attempts
// @Produce json
// @Success 200 {object} models.PaginatedResponse
// @Router /attempts/mine [get]
func (h *AttemptHandler) GetMyAttempts(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	filters := attemptFilters(parseAttemptParams(c))

	attempts, err := h.attemptService.GetByStudent(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginate(attempts.Attempts, len(attempts.Attempts), attempts.Total, attempts.Page, attempts.Size))
}

// parseAttemptParams reads attempt list parameters from the query string
func parseAttemptParams(c *gin.Context) models.ListAttemptsParams {
	page, size := parsePagination(c)

	params := models.ListAttemptsParams{
		Page:    page,
		Size:    size,
		Status:  models.AttemptStatus(c.Query("status")),
		SortBy:  c.DefaultQuery("sort_by", "created_at"),
		SortDir: c.DefaultQuery("sort_order", "desc"),
	}

	if studentID := c.Query("student_id"); studentID != "" {
		params.StudentID = &studentID
	}
	if from, err := time.Parse(time.RFC3339, c.Query("date_from")); err == nil {
		params.DateFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("date_to")); err == nil {
		params.DateTo = &to
	}

	return params
}

// attemptFilters translates list parameters into the repository filter shape
func attemptFilters(params models.ListAttemptsParams) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		StudentID: params.StudentID,
		DateFrom:  params.DateFrom,
		DateTo:    params.DateTo,
		Limit:     params.Size,
		Offset:    (params.Page - 1) * params.Size,
		SortBy:    params.SortBy,
		SortOrder: params.SortDir,
	}
	if params.Status != "" {
		status := params.Status
		filters.Status = &status
	}
	return filters
}
