package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

// ===== TIME MANAGEMENT =====

func (s *attemptService) GetTimeRemaining(ctx context.Context, attemptID uint, studentID string) (int, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, ErrAttemptNotFound
		}
		return 0, fmt.Errorf("failed to get attempt: %w", err)
	}

	// Verify ownership
	if attempt.StudentID != studentID {
		return 0, NewPermissionError(studentID, attemptID, "attempt", "get_time_remaining", "not owned by student")
	}

	if attempt.Status != models.AttemptInProgress {
		return 0, ErrAttemptNotActive
	}

	if attempt.DeadlineAt == nil {
		return -1, nil // No time limit
	}

	remaining := int(time.Until(*attempt.DeadlineAt).Seconds())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// ===== POST-SUBMISSION REVIEW =====

func (s *attemptService) Review(ctx context.Context, attemptID uint, userID string) (*AttemptResult, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.Status == models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	canAccess, err := s.canAccessAttempt(ctx, attempt, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, attemptID, "attempt", "review", "not owner or insufficient permissions")
	}

	questions, err := s.repo.Question().GetByQuiz(ctx, nil, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	// The stored score stays authoritative; the breakdown is replayed from
	// the frozen snapshot for display only.
	_, breakdown, err := s.grading.ScoreAttempt(ctx, attempt, derefQuestions(questions))
	if err != nil {
		s.logger.Error("Failed to build review breakdown", "attempt_id", attemptID, "error", err)
		breakdown = nil
	}

	return s.buildAttemptResult(attempt, breakdown), nil
}

// ===== LIST OPERATIONS =====

func (s *attemptService) GetByQuiz(ctx context.Context, quizID uint, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error) {
	isOwner, err := s.repo.Quiz().IsOwner(ctx, nil, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check quiz ownership: %w", err)
	}
	if !isOwner {
		isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
		if err != nil || !isAdmin {
			return nil, NewPermissionError(userID, quizID, "quiz", "view_attempts", "not owner or insufficient permissions")
		}
	}

	attempts, total, err := s.repo.Attempt().GetByQuiz(ctx, s.db, quizID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts by quiz: %w", err)
	}

	return buildAttemptListResponse(attempts, total, filters), nil
}

func (s *attemptService) GetByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	attempts, total, err := s.repo.Attempt().GetByStudent(ctx, s.db, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts by student: %w", err)
	}

	return buildAttemptListResponse(attempts, total, filters), nil
}

// ===== FINALIZATION =====

// finalizeAttempt is the single path out of in_progress, shared by manual
// submit and timeout. It freezes the settings snapshot, scores the recorded
// answers, and persists the finished row. Scoring happens before the write,
// so the student still gets their result if persistence fails.
func (s *attemptService) finalizeAttempt(ctx context.Context, attempt *models.Attempt, status models.AttemptStatus, endReason string) (*AttemptResult, error) {
	questions, err := s.repo.Question().GetByQuiz(ctx, nil, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	settings, err := s.repo.QuizSettings().GetByQuizID(ctx, nil, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz settings: %w", err)
	}

	// Freeze a deep copy of the settings so later edits to the quiz never
	// change how this attempt was scored.
	var snapshot models.QuizSettings
	if err := copier.Copy(&snapshot, settings); err != nil {
		return nil, fmt.Errorf("failed to copy settings snapshot: %w", err)
	}
	snapshot.Normalize()
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings snapshot: %w", err)
	}

	answers, err := attempt.DecodeAnswers()
	if err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	score, breakdown, err := s.grading.CalculateScore(&snapshot, derefQuestions(questions), answers)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate score: %w", err)
	}

	now := time.Now()
	attempt.Status = status
	attempt.CompletedAt = &now
	attempt.EndReason = &endReason
	attempt.Score = score
	attempt.TotalQuestions = len(questions)
	attempt.SettingsSnapshot = snapshotJSON
	if attempt.StartedAt != nil {
		end := now
		if endReason == models.AttemptEndReasonTimeout && attempt.DeadlineAt != nil && attempt.DeadlineAt.Before(now) {
			end = *attempt.DeadlineAt
		}
		attempt.TimeTaken = int(end.Sub(*attempt.StartedAt).Seconds())
	}

	persistErr := s.db.Transaction(func(tx *gorm.DB) error {
		// Submit-once guard under the transaction: a concurrent submit or
		// the timeout sweeper may have finished this row already.
		current, err := s.repo.Attempt().GetByID(ctx, tx, attempt.ID)
		if err != nil {
			return err
		}
		if current.Status != models.AttemptInProgress {
			return ErrAttemptAlreadySubmitted
		}
		return s.repo.Attempt().Update(ctx, tx, attempt)
	})
	if persistErr != nil {
		if errors.Is(persistErr, ErrAttemptAlreadySubmitted) {
			return nil, ErrAttemptAlreadySubmitted
		}
		// The computed result is still returned; the row stays in_progress
		// and the timeout sweeper or a retry will settle it.
		s.logger.Error("Failed to persist finished attempt, returning computed result",
			"attempt_id", attempt.ID,
			"error", persistErr)
	}

	// Session cleanup and event publish are best effort.
	if err := s.sessions.Delete(ctx, attempt.QuizID, attempt.StudentID); err != nil {
		s.logger.Warn("Failed to delete attempt session", "attempt_id", attempt.ID, "error", err)
	}
	if s.notifier != nil && persistErr == nil {
		if err := s.notifier.NotifyAttemptSubmitted(ctx, attempt); err != nil {
			s.logger.Warn("Failed to publish attempt submitted event", "attempt_id", attempt.ID, "error", err)
		}
	}

	s.logger.Info("Quiz attempt finished",
		"attempt_id", attempt.ID,
		"quiz_id", attempt.QuizID,
		"student_id", attempt.StudentID,
		"score", score,
		"end_reason", endReason,
		"persisted", persistErr == nil)

	result := s.buildAttemptResult(attempt, breakdown)
	result.GradingEnabled = snapshot.GradingEnabled
	return result, nil
}

// ===== RESPONSE BUILDING =====

func (s *attemptService) resumeAttempt(ctx context.Context, attempt *models.Attempt, quiz *models.Quiz) (*AttemptResponse, error) {
	session := s.loadOrRebuildSession(ctx, attempt, &quiz.Settings, quiz.Questions)
	return s.buildAttemptResponse(attempt, &quiz.Settings, quiz.Questions, session), nil
}

// loadOrRebuildSession returns the stored session for an attempt. When the
// store lost it (expiry, redis restart) a fresh ordering is drawn and saved;
// the attempt keeps its answers, only the presentation reshuffles.
func (s *attemptService) loadOrRebuildSession(ctx context.Context, attempt *models.Attempt, settings *models.QuizSettings, questions []models.Question) *models.AttemptSession {
	session, err := s.sessions.Load(ctx, attempt.QuizID, attempt.StudentID)
	if err == nil && session.AttemptID == attempt.ID {
		return session
	}

	session, buildErr := buildAttemptSession(attempt, settings, questions, attempt.DeadlineAt)
	if buildErr != nil {
		s.logger.Error("Failed to rebuild attempt session", "attempt_id", attempt.ID, "error", buildErr)
		return nil
	}
	s.logger.Warn("Attempt session rebuilt", "attempt_id", attempt.ID)
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Warn("Failed to save rebuilt session", "attempt_id", attempt.ID, "error", err)
	}
	return session
}

// buildAttemptResponse assembles the in-progress view: questions in session
// order with correctness flags and explanations stripped.
func (s *attemptService) buildAttemptResponse(attempt *models.Attempt, settings *models.QuizSettings, questions []models.Question, session *models.AttemptSession) *AttemptResponse {
	response := &AttemptResponse{
		Attempt:          attempt,
		RemainingSeconds: -1,
		LockedAnswers:    settings.LockedAnswers,
		CanSubmit:        attempt.Status == models.AttemptInProgress,
	}

	now := time.Now()
	if attempt.DeadlineAt != nil {
		left := int(attempt.DeadlineAt.Sub(now).Seconds())
		if left < 0 {
			left = 0
		}
		response.RemainingSeconds = left
		response.CanSubmit = response.CanSubmit && left > 0
	}

	answers, err := attempt.DecodeAnswers()
	if err != nil {
		s.logger.Error("Failed to decode answers for response", "attempt_id", attempt.ID, "error", err)
		answers = map[string]string{}
	}

	ordered := questions
	var optionOrder map[string][]string
	if session != nil {
		ordered = orderQuestions(questions, session.QuestionOrder)
		optionOrder = session.OptionOrder
	}

	views := make([]QuestionView, 0, len(ordered))
	for _, q := range ordered {
		opts, err := q.DecodeOptions()
		if err != nil {
			s.logger.Error("Failed to decode options for response", "question_id", q.ID, "error", err)
			continue
		}
		key := strconv.FormatUint(uint64(q.ID), 10)
		opts = orderOptions(opts, optionOrder[key])

		optViews := make([]OptionView, len(opts))
		for i, opt := range opts {
			optViews[i] = OptionView{
				ID:       opt.ID,
				Text:     opt.Text,
				ImageURL: opt.ImageURL,
			}
		}

		views = append(views, QuestionView{
			ID:               q.ID,
			Text:             q.Text,
			ImageURL:         q.ImageURL,
			Options:          optViews,
			SelectedOptionID: answers[key],
		})
	}
	response.Questions = views

	return response
}

func (s *attemptService) buildAttemptResult(attempt *models.Attempt, breakdown []QuestionResult) *AttemptResult {
	result := &AttemptResult{
		AttemptID:      attempt.ID,
		QuizID:         attempt.QuizID,
		QuizTitle:      attempt.QuizTitle,
		Status:         attempt.Status,
		GradingEnabled: true,
		Score:          attempt.Score,
		TotalQuestions: attempt.TotalQuestions,
		TimeTaken:      attempt.TimeTaken,
		CompletedAt:    attempt.CompletedAt,
		Breakdown:      breakdown,
	}
	if attempt.EndReason != nil {
		result.EndReason = *attempt.EndReason
	}
	if snapshot, err := attempt.DecodeSettings(); err == nil && snapshot != nil {
		result.GradingEnabled = snapshot.GradingEnabled
	}
	return result
}

// ===== HELPERS =====

func (s *attemptService) lookupStudentProfile(ctx context.Context, studentID string) (name, email, idNumber string) {
	idNumber = "N/A"
	user, err := s.repo.User().GetByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("Failed to load student profile, using placeholders",
			"student_id", studentID,
			"error", err)
		return "", "", idNumber
	}
	name = user.FullName
	email = user.Email
	if user.StudentIDNumber != nil && *user.StudentIDNumber != "" {
		idNumber = *user.StudentIDNumber
	}
	return name, email, idNumber
}

func (s *attemptService) canAccessAttempt(ctx context.Context, attempt *models.Attempt, userID string) (bool, error) {
	if attempt.StudentID == userID {
		return true, nil
	}

	isOwner, err := s.repo.Quiz().IsOwner(ctx, nil, attempt.QuizID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check quiz ownership: %w", err)
	}
	if isOwner {
		return true, nil
	}

	return s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
}

func buildAttemptListResponse(attempts []*models.Attempt, total int64, filters repositories.AttemptFilters) *AttemptListResponse {
	summaries := make([]*models.AttemptSummary, len(attempts))
	for i, a := range attempts {
		summaries[i] = &models.AttemptSummary{
			ID:              a.ID,
			QuizID:          a.QuizID,
			StudentID:       a.StudentID,
			StudentName:     a.StudentName,
			StudentIDNumber: a.StudentIDNumber,
			Status:          a.Status,
			Score:           a.Score,
			TotalQuestions:  a.TotalQuestions,
			TimeTaken:       a.TimeTaken,
			CompletedAt:     a.CompletedAt,
		}
	}

	size := filters.Limit
	if size <= 0 {
		size = len(summaries)
	}
	page := 0
	if size > 0 {
		page = filters.Offset / size
	}

	return &AttemptListResponse{
		Attempts: summaries,
		Total:    total,
		Page:     page,
		Size:     size,
	}
}

func findQuestion(questions []models.Question, id uint) *models.Question {
	for i := range questions {
		if questions[i].ID == id {
			return &questions[i]
		}
	}
	return nil
}

func hasOption(opts []models.Option, id string) bool {
	for _, opt := range opts {
		if opt.ID == id {
			return true
		}
	}
	return false
}

func derefQuestions(questions []*models.Question) []models.Question {
	out := make([]models.Question, len(questions))
	for i, q := range questions {
		out[i] = *q
	}
	return out
}
