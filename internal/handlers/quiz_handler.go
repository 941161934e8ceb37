package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
	"github.com/quizcraft/quiz-service/internal/services"
	"github.com/quizcraft/quiz-service/internal/utils"
	"github.com/quizcraft/quiz-service/internal/validator"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
	validator   *validator.Validator
}

func NewQuizHandler(
	quizService services.QuizService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
		validator:   validator,
	}
}

// CreateQuiz creates a new quiz
// @Summary Create quiz
// @Description Creates a new quiz with questions and settings
// @Tags quizzes
// @Accept json
// @Produce json
// @Param quiz body services.CreateQuizRequest true "Quiz data"
// @Success 201 {object} services.QuizResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	h.LogRequest(c, "Creating quiz")

	var req services.CreateQuizRequest
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

	quiz, err := h.quizService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz retrieves a quiz by ID
// @Summary Get quiz
// @Description Retrieves a quiz by its ID
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.QuizResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// GetQuizWithDetails retrieves a quiz with questions and settings.
// For non-owners the answer key is stripped from the payload.
// @Summary Get quiz with details
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.QuizResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/details [get]
func (h *QuizHandler) GetQuizWithDetails(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	quiz, err := h.quizService.GetByIDWithDetails(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// UpdateQuiz updates a quiz's title, description, questions or settings
// @Summary Update quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param quiz body services.UpdateQuizRequest true "Quiz update data"
// @Success 200 {object} services.QuizResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [put]
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating quiz", "quiz_id", id)

	var req services.UpdateQuizRequest
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

	quiz, err := h.quizService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// DeleteQuiz deletes a quiz
// @Summary Delete quiz
// @Tags quizzes
// @Param id path uint true "Quiz ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting quiz", "quiz_id", id)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Quiz deleted successfully",
	})
}

// ListQuizzes lists quizzes with filters and pagination
// @Summary List quizzes
// @Tags quizzes
// @Produce json
// @Param search query string false "Search in title and description"
// @Param active_only query bool false "Only quizzes currently accepting responses"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} models.PaginatedResponse
// @Router /quizzes [get]
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	filters := quizFilters(parseQuizParams(c))

	quizzes, err := h.quizService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginate(quizzes.Quizzes, len(quizzes.Quizzes), quizzes.Total, quizzes.Page, quizzes.Size))
}

// GetActiveQuizzes lists quizzes currently accepting responses
// @Summary List active quizzes
// @Tags quizzes
// @Produce json
// @Success 200 {object} models.PaginatedResponse
// @Router /quizzes/active [get]
func (h *QuizHandler) GetActiveQuizzes(c *gin.Context) {
	if h.requireUserID(c) == "" {
		return
	}

	params := parseQuizParams(c)
	params.ActiveOnly = true
	filters := quizFilters(params)

	quizzes, err := h.quizService.GetActive(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginate(quizzes.Quizzes, len(quizzes.Quizzes), quizzes.Total, quizzes.Page, quizzes.Size))
}

// GetMyQuizzes lists quizzes owned by the authenticated instructor
// @Summary List own quizzes
// @Tags quizzes
// @Produce json
// @Success 200 {object} models.PaginatedResponse
// @Router /quizzes/mine [get]
func (h *QuizHandler) GetMyQuizzes(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	filters := quizFilters(parseQuizParams(c))

	quizzes, err := h.quizService.GetByInstructor(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginate(quizzes.Quizzes, len(quizzes.Quizzes), quizzes.Total, quizzes.Page, quizzes.Size))
}

// UpdateQuizSettings updates a quiz's settings
// @Summary Update quiz settings
// @Description Updates grading, randomization and timer settings for a quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param settings body services.QuizSettingsRequest true "Settings data"
// @Success 200 {object} models.QuizSettings
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/settings [patch]
func (h *QuizHandler) UpdateQuizSettings(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating quiz settings", "quiz_id", id)

	var req services.QuizSettingsRequest
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

	settings, err := h.quizService.UpdateSettings(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// PublishQuiz opens a quiz for responses
// @Summary Publish quiz
// @Tags quizzes
// @Param id path uint true "Quiz ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/publish [post]
func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Publishing quiz", "quiz_id", id)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.quizService.SetActive(c.Request.Context(), id, true, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Quiz is now accepting responses",
	})
}

// CloseQuiz stops a quiz from accepting responses
// @Summary Close quiz
// @Tags quizzes
// @Param id path uint true "Quiz ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/close [post]
func (h *QuizHandler) CloseQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Closing quiz", "quiz_id", id)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.quizService.SetActive(c.Request.Context(), id, false, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Quiz is no longer accepting responses",
	})
}

// parseQuizParams reads quiz list parameters from the query string
func parseQuizParams(c *gin.Context) models.ListQuizzesParams {
	page, size := parsePagination(c)

	params := models.ListQuizzesParams{
		Page:       page,
		Size:       size,
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active_only") == "true",
		SortBy:     c.DefaultQuery("sort_by", "created_at"),
		SortDir:    c.DefaultQuery("sort_order", "desc"),
	}

	if instructorID := c.Query("instructor_id"); instructorID != "" {
		params.InstructorID = &instructorID
	}

	return params
}

// quizFilters translates list parameters into the repository filter shape
func quizFilters(params models.ListQuizzesParams) repositories.QuizFilters {
	filters := repositories.QuizFilters{
		InstructorID: params.InstructorID,
		Search:       params.Search,
		ActiveOnly:   params.ActiveOnly,
		Limit:        params.Size,
		Offset:       (params.Page - 1) * params.Size,
		SortBy:       params.SortBy,
		SortOrder:    params.SortDir,
	}
	return filters
}
