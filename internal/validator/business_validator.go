package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/quizcraft/quiz-service/internal/models"
)

// ValidateQuizCreate validates a quiz creation request: struct tags plus the
// structural rules on questions and options.
func (v *Validator) ValidateQuizCreate(req *models.QuizCreateRequest) ValidationErrors {
	var errors ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		errors = append(errors, ToValidationErrors(err)...)
	}

	errors = append(errors, v.validateQuestionRules(req.Questions)...)

	return errors
}

// ValidateQuizUpdate validates a quiz update request. Nil fields keep the
// stored values and are not checked.
func (v *Validator) ValidateQuizUpdate(req *models.QuizUpdateRequest) ValidationErrors {
	var errors ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		errors = append(errors, ToValidationErrors(err)...)
	}

	if req.Questions != nil {
		errors = append(errors, v.validateQuestionRules(req.Questions)...)
	}

	return errors
}

// validateQuestionRules checks the invariants struct tags cannot express:
// non-blank texts and option ids unique within their question. Whether a
// question has a correct option is deliberately not checked here; a question
// without one simply never awards points.
func (v *Validator) validateQuestionRules(questions []models.QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	for qi, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("questions[%d].text", qi),
				Message: "cannot be blank",
				Rule:    "business_logic",
			})
		}

		seen := make(map[string]bool, len(q.Options))
		for oi, opt := range q.Options {
			if strings.TrimSpace(opt.Text) == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("questions[%d].options[%d].text", qi, oi),
					Message: "cannot be blank",
					Value:   opt.Text,
					Rule:    "business_logic",
				})
			}
			if opt.ID == "" {
				continue // assigned server-side
			}
			if seen[opt.ID] {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("questions[%d].options[%d].id", qi, oi),
					Message: "duplicate option id within question",
					Value:   opt.ID,
					Rule:    "business_logic",
				})
			}
			seen[opt.ID] = true
		}
	}

	return errors
}

// ValidateAttemptStart validates the gate in front of a new attempt: the
// quiz must be accepting responses, and a student with a finished attempt
// needs retakes enabled. Both failures reject before anything is created.
func (v *Validator) ValidateAttemptStart(settings *models.QuizSettings, hasCompletedAttempt bool) ValidationErrors {
	var errors ValidationErrors

	if !settings.Active {
		errors = append(errors, ValidationError{
			Field:   "active",
			Message: "quiz is not accepting responses",
			Value:   settings.Active,
			Rule:    "business_logic",
		})
	}

	if hasCompletedAttempt && !settings.AllowRetakes {
		errors = append(errors, ValidationError{
			Field:   "allow_retakes",
			Message: "quiz has already been attempted and retakes are not allowed",
			Value:   settings.AllowRetakes,
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerBusinessRules registers custom rule validators.
func (v *Validator) registerBusinessRules() {
	// Title validation (1-200 characters after trimming)
	v.validate.RegisterValidation("quiz_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	// Timer validation (0 = unlimited, capped at 600 minutes)
	v.validate.RegisterValidation("timer_minutes", func(fl validator.FieldLevel) bool {
		minutes := fl.Field().Int()
		return minutes >= 0 && minutes <= 600
	})
}
