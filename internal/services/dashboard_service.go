package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

func (s *dashboardService) GetInstructorStats(ctx context.Context, instructorID string) (*repositories.InstructorStats, error) {
	s.logger.Debug("Getting instructor stats", "instructor_id", instructorID)

	stats, err := s.repo.Dashboard().GetInstructorStats(ctx, nil, instructorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get instructor stats: %w", err)
	}
	return stats, nil
}

// GetQuizOverview builds one summary row per quiz the instructor owns, the
// shape the dashboard landing page renders as a table.
func (s *dashboardService) GetQuizOverview(ctx context.Context, instructorID string) ([]models.QuizSummary, error) {
	s.logger.Debug("Getting quiz overview", "instructor_id", instructorID)

	quizzes, _, err := s.repo.Quiz().GetByInstructor(ctx, nil, instructorID, repositories.QuizFilters{
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get instructor quizzes: %w", err)
	}

	summaries := make([]models.QuizSummary, 0, len(quizzes))
	for _, quiz := range quizzes {
		summary := models.QuizSummary{
			ID:           quiz.ID,
			Title:        quiz.Title,
			Description:  quiz.Description,
			InstructorID: quiz.InstructorID,
			CreatedAt:    quiz.CreatedAt,
		}

		if count, err := s.repo.Question().CountByQuiz(ctx, nil, quiz.ID); err != nil {
			s.logger.Warn("Failed to count questions", "quiz_id", quiz.ID, "error", err)
		} else {
			summary.QuestionsCount = int(count)
		}

		settings, err := s.repo.QuizSettings().GetByQuizID(ctx, nil, quiz.ID)
		if err != nil {
			s.logger.Warn("Failed to load quiz settings", "quiz_id", quiz.ID, "error", err)
		} else {
			summary.TimerMinutes = settings.TimerMinutes
			summary.Active = settings.Active
		}

		aggregate, err := s.repo.Attempt().GetQuizAggregate(ctx, nil, quiz.ID)
		if err != nil {
			s.logger.Warn("Failed to load attempt aggregate", "quiz_id", quiz.ID, "error", err)
		} else {
			summary.AttemptCount = aggregate.TotalAttempts
			summary.AvgScore = roundFloat(aggregate.AverageScore, 2)
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// GetQuizStats assembles the analytics page for one quiz: attempt aggregate,
// score distribution, and the per-question correct/wrong/skipped counts.
func (s *dashboardService) GetQuizStats(ctx context.Context, quizID uint, userID string) (*models.QuizStats, error) {
	s.logger.Debug("Getting quiz stats", "quiz_id", quizID, "user_id", userID)

	if err := s.checkQuizAccess(ctx, quizID, userID); err != nil {
		return nil, err
	}

	aggregate, err := s.repo.Attempt().GetQuizAggregate(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz aggregate: %w", err)
	}

	stats := &models.QuizStats{
		QuizID:            quizID,
		TotalAttempts:     aggregate.TotalAttempts,
		CompletedAttempts: aggregate.CompletedAttempts,
		TimedOutAttempts:  aggregate.TimedOutAttempts,
		AverageScore:      roundFloat(aggregate.AverageScore, 2),
		HighestScore:      aggregate.HighestScore,
		LowestScore:       aggregate.LowestScore,
		AverageTime:       aggregate.AverageTimeSpent,
	}

	distribution, err := s.repo.Dashboard().GetScoreDistribution(ctx, nil, quizID, scoreBucketSize)
	if err != nil {
		s.logger.Warn("Failed to get score distribution", "quiz_id", quizID, "error", err)
	} else {
		stats.ScoreDistribution = buildScoreBuckets(distribution)
	}

	questionStats, err := s.buildQuestionStats(ctx, quizID, aggregate.CompletedAttempts+aggregate.TimedOutAttempts)
	if err != nil {
		s.logger.Warn("Failed to build question stats", "quiz_id", quizID, "error", err)
	} else {
		stats.QuestionStats = questionStats
	}

	return stats, nil
}

func (s *dashboardService) GetRecentAttempts(ctx context.Context, quizID uint, limit int, userID string) ([]repositories.RecentAttemptData, error) {
	if err := s.checkQuizAccess(ctx, quizID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 50 {
		limit = 10
	}

	attempts, err := s.repo.Dashboard().GetRecentAttempts(ctx, nil, quizID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent attempts: %w", err)
	}
	return attempts, nil
}

// ===== HELPERS =====

const scoreBucketSize = 10.0

func (s *dashboardService) checkQuizAccess(ctx context.Context, quizID uint, userID string) error {
	isOwner, err := s.repo.Quiz().IsOwner(ctx, nil, quizID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to check quiz ownership: %w", err)
	}
	if isOwner {
		return nil
	}

	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err == nil && isAdmin {
		return nil
	}

	return NewPermissionError(userID, quizID, "quiz", "view_stats", "not owner or insufficient permissions")
}

// buildQuestionStats crosses the answer tallies with the question list. A
// finished attempt that has no entry for a question counts as a skip.
func (s *dashboardService) buildQuestionStats(ctx context.Context, quizID uint, finishedAttempts int) ([]models.QuestionStatsItem, error) {
	questions, err := s.repo.Question().GetByQuiz(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	counts, err := s.repo.Dashboard().GetAnswerCounts(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answer counts: %w", err)
	}

	items := make([]models.QuestionStatsItem, 0, len(questions))
	for _, q := range questions {
		opts, err := q.DecodeOptions()
		if err != nil {
			s.logger.Error("Failed to decode options", "question_id", q.ID, "error", err)
			continue
		}
		correctID := models.CorrectOptionID(opts)

		item := models.QuestionStatsItem{
			QuestionID:   q.ID,
			QuestionText: q.Text,
		}

		answered := 0
		for optionID, count := range counts[q.ID] {
			answered += count
			if optionID == correctID && correctID != "" {
				item.CorrectCount += count
			} else {
				item.WrongCount += count
			}
		}

		item.SkippedCount = finishedAttempts - answered
		if item.SkippedCount < 0 {
			item.SkippedCount = 0
		}
		if answered > 0 {
			item.CorrectRate = roundFloat(float64(item.CorrectCount)/float64(answered)*100, 1)
		}

		items = append(items, item)
	}

	return items, nil
}

func buildScoreBuckets(distribution []repositories.ScoreDistributionData) []models.ScoreBucket {
	buckets := make([]models.ScoreBucket, len(distribution))
	for i, d := range distribution {
		lower := d.Bucket
		upper := lower + scoreBucketSize
		buckets[i] = models.ScoreBucket{
			Range: strconv.FormatFloat(lower, 'f', -1, 64) + "-" + strconv.FormatFloat(upper, 'f', -1, 64),
			Count: int(d.Count),
		}
	}
	return buckets
}

func roundFloat(val float64, precision int) float64 {
	ratio := 1.0
	for i := 0; i < precision; i++ {
		ratio *= 10
	}
	if val < 0 {
		return float64(int(val*ratio-0.5)) / ratio
	}
	return float64(int(val*ratio+0.5)) / ratio
}
