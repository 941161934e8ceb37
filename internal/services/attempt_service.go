package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/cache"
	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
	"github.com/quizcraft/quiz-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	sessions  *cache.SessionStore
	grading   GradingService
	notifier  NotificationEventService
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, sessions *cache.SessionStore, grading GradingService, notifier NotificationEventService) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		sessions:  sessions,
		grading:   grading,
		notifier:  notifier,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting quiz attempt",
		"quiz_id", req.QuizID,
		"student_id", studentID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Get quiz with settings and questions
	quiz, err := s.repo.Quiz().GetByIDWithDetails(ctx, s.db, req.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	// An in-progress attempt is resumed, never duplicated. Starting from a
	// second tab lands on the same attempt and the same fixed ordering.
	active, err := s.repo.Attempt().GetActiveAttempt(ctx, s.db, req.QuizID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}
	if active != nil {
		if active.DeadlineAt != nil && time.Now().After(*active.DeadlineAt) {
			if err := s.HandleTimeout(ctx, active.ID); err != nil {
				s.logger.Error("Failed to handle expired attempt", "attempt_id", active.ID, "error", err)
			}
			// Fall through: the gate below decides whether a fresh
			// attempt may start after the timeout submit.
		} else {
			s.logger.Info("Resuming existing attempt", "attempt_id", active.ID)
			return s.resumeAttempt(ctx, active, quiz)
		}
	}

	// Gate: quiz accepting responses, retakes allowed when needed
	hasCompleted, err := s.repo.Attempt().HasCompletedAttempt(ctx, s.db, req.QuizID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check completed attempts: %w", err)
	}
	if verrs := s.validator.ValidateAttemptStart(&quiz.Settings, hasCompleted); len(verrs) > 0 {
		for _, verr := range verrs {
			if verr.Field == "active" {
				return nil, ErrQuizNotActive
			}
		}
		return nil, ErrRetakeNotAllowed
	}

	// Denormalized student fields come from the identity provider; a lookup
	// failure degrades to placeholders instead of blocking the start.
	studentName, studentEmail, studentIDNumber := s.lookupStudentProfile(ctx, studentID)

	now := time.Now()
	var deadline *time.Time
	if quiz.Settings.Timed() {
		d := now.Add(time.Duration(quiz.Settings.TimerMinutes) * time.Minute)
		deadline = &d
	}

	attempt := &models.Attempt{
		QuizID:          req.QuizID,
		StudentID:       studentID,
		Status:          models.AttemptInProgress,
		QuizTitle:       quiz.Title,
		StudentName:     studentName,
		StudentEmail:    studentEmail,
		StudentIDNumber: studentIDNumber,
		StartedAt:       &now,
		DeadlineAt:      deadline,
		TotalQuestions:  len(quiz.Questions),
	}
	if err := attempt.SetAnswers(map[string]string{}); err != nil {
		return nil, fmt.Errorf("failed to initialize answers: %w", err)
	}

	if err := s.repo.Attempt().Create(ctx, s.db, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	// Fix the presentation order for this attempt and persist it so reloads
	// replay the same view.
	session, err := buildAttemptSession(attempt, &quiz.Settings, quiz.Questions, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to build attempt session: %w", err)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Warn("Failed to save attempt session, ordering will be rebuilt on reload",
			"attempt_id", attempt.ID,
			"error", err)
	}

	s.logger.Info("Quiz attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", req.QuizID,
		"student_id", studentID,
		"timed", deadline != nil)

	return s.buildAttemptResponse(attempt, &quiz.Settings, quiz.Questions, session), nil
}

func (s *attemptService) GetCurrent(ctx context.Context, quizID uint, studentID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetActiveAttempt(ctx, s.db, quizID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current attempt: %w", err)
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}

	quiz, err := s.repo.Quiz().GetByIDWithDetails(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if attempt.DeadlineAt != nil && time.Now().After(*attempt.DeadlineAt) {
		if err := s.HandleTimeout(ctx, attempt.ID); err != nil {
			s.logger.Error("Failed to handle expired attempt", "attempt_id", attempt.ID, "error", err)
		}
		return nil, ErrAttemptTimeExpired
	}

	return s.resumeAttempt(ctx, attempt, quiz)
}

func (s *attemptService) RecordAnswer(ctx context.Context, attemptID uint, req *RecordAnswerRequest, studentID string) (*AttemptResponse, error) {
	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	// Verify ownership
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", "record_answer", "not owned by student")
	}

	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	// A write that races past the deadline converts into a timeout submit.
	if attempt.DeadlineAt != nil && time.Now().After(*attempt.DeadlineAt) {
		if err := s.HandleTimeout(ctx, attemptID); err != nil {
			s.logger.Error("Failed to handle expired attempt", "attempt_id", attemptID, "error", err)
		}
		return nil, ErrAttemptTimeExpired
	}

	quiz, err := s.repo.Quiz().GetByIDWithDetails(ctx, s.db, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	question := findQuestion(quiz.Questions, req.QuestionID)
	if question == nil {
		return nil, ErrQuestionNotInQuiz
	}
	opts, err := question.DecodeOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	if !hasOption(opts, req.OptionID) {
		return nil, NewValidationError("option_id", "option does not belong to this question", req.OptionID)
	}

	answers, err := attempt.DecodeAnswers()
	if err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	key := strconv.FormatUint(uint64(req.QuestionID), 10)
	if prev, answered := answers[key]; answered && quiz.Settings.LockedAnswers && prev != req.OptionID {
		return nil, ErrAnswerLocked
	}

	answers[key] = req.OptionID
	if err := attempt.SetAnswers(answers); err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	if err := s.repo.Attempt().Update(ctx, s.db, attempt); err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	s.logger.Debug("Answer recorded",
		"attempt_id", attemptID,
		"question_id", req.QuestionID)

	session := s.loadOrRebuildSession(ctx, attempt, &quiz.Settings, quiz.Questions)
	return s.buildAttemptResponse(attempt, &quiz.Settings, quiz.Questions, session), nil
}

func (s *attemptService) Submit(ctx context.Context, attemptID uint, studentID string) (*AttemptResult, error) {
	s.logger.Info("Submitting quiz attempt",
		"attempt_id", attemptID,
		"student_id", studentID)

	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	// Verify ownership
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", "submit", "not owned by student")
	}

	// Submit-once guard
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	// A manual submit that arrives after the deadline is still accepted
	// with the answers already on record, just tagged as a timeout.
	endReason := models.AttemptEndReasonCompleted
	status := models.AttemptCompleted
	if attempt.DeadlineAt != nil && time.Now().After(*attempt.DeadlineAt) {
		endReason = models.AttemptEndReasonTimeout
		status = models.AttemptTimeOut
	}

	return s.finalizeAttempt(ctx, attempt, status, endReason)
}

// HandleTimeout closes an expired attempt exactly the way a manual submit
// would, scoring whatever answers were recorded before the deadline. Safe to
// call more than once; a finished attempt is left alone.
func (s *attemptService) HandleTimeout(ctx context.Context, attemptID uint) error {
	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.Status != models.AttemptInProgress {
		return nil // Already handled
	}

	s.logger.Info("Handling attempt timeout",
		"attempt_id", attemptID,
		"quiz_id", attempt.QuizID,
		"student_id", attempt.StudentID)

	_, err = s.finalizeAttempt(ctx, attempt, models.AttemptTimeOut, models.AttemptEndReasonTimeout)
	return err
}
