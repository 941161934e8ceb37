package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
	"github.com/quizcraft/quiz-service/internal/validator"
)

type gradingService struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewGradingService(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) GradingService {
	return &gradingService{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// CalculateScore walks every question of the quiz and applies the scoring
// policy to the answer map:
//
//	correct answer        +points_per_question
//	wrong answer          -negative_marking_points (when negative marking is on)
//	skipped question      0, always, even under negative marking
//
// The score is a plain signed sum. There is no floor at zero; enough wrong
// answers under negative marking produce a negative total. Questions missing
// from the answer map count as skipped.
func (s *gradingService) CalculateScore(settings *models.QuizSettings, questions []models.Question, answers map[string]string) (float64, []QuestionResult, error) {
	policy := *settings
	policy.Normalize()

	score := 0.0
	results := make([]QuestionResult, 0, len(questions))

	for _, question := range questions {
		opts, err := question.DecodeOptions()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to decode options for question %d: %w", question.ID, err)
		}

		correctID := models.CorrectOptionID(opts)
		selectedID := answers[strconv.FormatUint(uint64(question.ID), 10)]

		result := QuestionResult{
			QuestionID:       question.ID,
			Text:             question.Text,
			SelectedOptionID: selectedID,
			CorrectOptionID:  correctID,
			Explanation:      question.Explanation,
		}

		switch {
		case selectedID == "":
			result.Skipped = true
		case selectedID == correctID:
			result.Correct = true
			result.PointsAwarded = policy.PointsPerQuestion
			score += policy.PointsPerQuestion
		default:
			if policy.NegativeMarking {
				result.PointsAwarded = -policy.NegativeMarkingPoints
				score -= policy.NegativeMarkingPoints
			}
		}

		results = append(results, result)
	}

	return score, results, nil
}

// ScoreAttempt grades an attempt against the settings frozen into it. When
// the snapshot is missing (an attempt that never reached submission under
// the current schema) the quiz's live settings are used instead.
func (s *gradingService) ScoreAttempt(ctx context.Context, attempt *models.Attempt, questions []models.Question) (float64, []QuestionResult, error) {
	settings, err := attempt.DecodeSettings()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decode settings snapshot: %w", err)
	}
	if settings == nil {
		settings, err = s.repo.QuizSettings().GetByQuizID(ctx, nil, attempt.QuizID)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to get quiz settings: %w", err)
		}
	}

	answers, err := attempt.DecodeAnswers()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	return s.CalculateScore(settings, questions, answers)
}
