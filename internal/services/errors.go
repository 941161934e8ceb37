package services

import (
	"errors"
	"fmt"

	"github.com/quizcraft/quiz-service/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	// Quiz errors
	ErrQuizNotFound  = errors.New("quiz not found")
	ErrQuizNotActive = errors.New("quiz is not accepting responses")

	// Attempt errors
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptCannotStart      = errors.New("attempt cannot be started")
	ErrAttemptNotActive        = errors.New("attempt is not active")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptTimeExpired      = errors.New("attempt time has expired")
	ErrRetakeNotAllowed        = errors.New("retakes are not allowed for this quiz")
	ErrAnswerLocked            = errors.New("answer is locked and cannot be changed")
	ErrQuestionNotInQuiz       = errors.New("question does not belong to this quiz")

	// General errors
	ErrValidationFailed = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

// ===== TYPED ERRORS =====

// ValidationErrors re-exported so handlers only import the services package
type ValidationErrors = validator.ValidationErrors
type ValidationError = validator.ValidationError

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// BusinessRuleError represents a domain rule violation
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation [%s]: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// PermissionError carries enough context to explain a denied action
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}
