package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/services"
	"github.com/quizcraft/quiz-service/internal/utils"
)

// ErrorResponse is the error envelope returned by every endpoint. Details is
// a plain string for malformed input and a []models.ValidationErrorResponse
// for field-level validation failures.
type ErrorResponse struct {
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse is used for endpoints that have no natural payload
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the pieces every handler needs
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs the start of request handling with request-scoped fields
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

// parseIDParam parses a uint path parameter. On failure it writes a 400
// response and returns 0; callers must return immediately on 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: "must be a positive integer",
		})
		return 0
	}
	return uint(id)
}

// requireUserID pulls the authenticated user ID out of the context. On
// failure it writes a 401 response and returns "".
func (h *BaseHandler) requireUserID(c *gin.Context) string {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return ""
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return ""
	}
	return id
}

// parsePagination reads page and size from the query string, clamping to
// sane values. Pages are 1-based on the wire.
func parsePagination(c *gin.Context) (page, size int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// paginate wraps one page of results in the standard list envelope.
// The page argument is 0-based, matching what the services report back.
func paginate(content interface{}, count int, total int64, page, size int) models.PaginatedResponse {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return models.PaginatedResponse{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		Size:             size,
		Page:             page,
		First:            page == 0,
		Last:             page >= totalPages-1,
		NumberOfElements: count,
		Empty:            count == 0,
	}
}

// validationDetails flattens field errors into the wire shape clients
// render next to form fields
func validationDetails(errs services.ValidationErrors) []models.ValidationErrorResponse {
	details := make([]models.ValidationErrorResponse, 0, len(errs))
	for _, e := range errs {
		detail := models.ValidationErrorResponse{
			Field:   e.Field,
			Message: e.Message,
			Code:    e.Rule,
		}
		if e.Value != nil {
			detail.Value = fmt.Sprint(e.Value)
		}
		details = append(details, detail)
	}
	return details
}

// handleServiceError maps service-layer errors onto HTTP status codes
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs services.ValidationErrors
	var validationErr *services.ValidationError
	var permissionErr *services.PermissionError
	var businessErr *services.BusinessRuleError

	switch {
	case errors.Is(err, services.ErrQuizNotFound),
		errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrQuizNotActive),
		errors.Is(err, services.ErrRetakeNotAllowed),
		errors.Is(err, services.ErrAttemptCannotStart),
		errors.Is(err, services.ErrAttemptNotActive),
		errors.Is(err, services.ErrAttemptAlreadySubmitted),
		errors.Is(err, services.ErrAnswerLocked):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrAttemptTimeExpired):
		c.JSON(http.StatusGone, ErrorResponse{
			Error:   "time_expired",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrQuestionNotInQuiz):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})

	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "Validation failed",
			Details: validationDetails(validationErrs),
		})

	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "Validation failed",
			Details: validationDetails(services.ValidationErrors{*validationErr}),
		})

	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: permissionErr.Error(),
		})

	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: err.Error(),
		})

	case errors.As(err, &businessErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   businessErr.Rule,
			Message: businessErr.Message,
		})

	default:
		utils.GetLogger(c, h.logger).Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
}
