package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
	"github.com/quizcraft/quiz-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	notifier  NotificationEventService
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, notifier NotificationEventService) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		notifier:  notifier,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, instructorID string) (*QuizResponse, error) {
	s.logger.Info("Creating quiz",
		"title", req.Title,
		"instructor_id", instructorID,
		"questions_count", len(req.Questions))

	if verrs := s.validator.ValidateQuizCreate(req); len(verrs) > 0 {
		return nil, verrs
	}

	quiz := &models.Quiz{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: instructorID,
	}

	settings := defaultSettings()
	applySettingsRequest(&settings, req.Settings)
	settings.Normalize()

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Quiz().Create(ctx, tx, quiz); err != nil {
			return fmt.Errorf("failed to create quiz: %w", err)
		}

		settings.QuizID = quiz.ID
		if err := s.repo.QuizSettings().Create(ctx, tx, &settings); err != nil {
			return fmt.Errorf("failed to create settings: %w", err)
		}

		for i := range questions {
			questions[i].QuizID = quiz.ID
			questions[i].Order = i
		}
		if err := s.repo.Question().CreateBatch(ctx, tx, questions); err != nil {
			return fmt.Errorf("failed to create questions: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "instructor_id", instructorID)

	return s.GetByIDWithDetails(ctx, quiz.ID, instructorID)
}

func (s *quizService) GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	return s.buildQuizResponse(ctx, quiz, userID), nil
}

func (s *quizService) GetByIDWithDetails(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.repo.Quiz().GetByIDWithDetails(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz with details: %w", err)
	}

	response := s.buildQuizResponse(ctx, quiz, userID)

	// Students taking the quiz never see correctness flags or explanations;
	// those only exist server-side until the attempt is finished.
	if quiz.InstructorID != userID {
		if err := stripAnswerKey(response.Quiz); err != nil {
			return nil, fmt.Errorf("failed to sanitize questions: %w", err)
		}
	}

	return response, nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error) {
	s.logger.Info("Updating quiz", "quiz_id", id, "user_id", userID)

	if verrs := s.validator.ValidateQuizUpdate(req); len(verrs) > 0 {
		return nil, verrs
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.InstructorID != userID {
		return nil, NewPermissionError(userID, id, "quiz", "update", "not the quiz owner")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.Title != nil {
			quiz.Title = *req.Title
		}
		if req.Description != nil {
			quiz.Description = req.Description
		}
		if err := s.repo.Quiz().Update(ctx, tx, quiz); err != nil {
			return fmt.Errorf("failed to update quiz: %w", err)
		}

		// The editor saves the question list as one unit; a present list
		// replaces the stored one wholesale.
		if req.Questions != nil {
			questions, err := buildQuestions(req.Questions)
			if err != nil {
				return err
			}
			if err := s.repo.Question().ReplaceForQuiz(ctx, tx, id, questions); err != nil {
				return fmt.Errorf("failed to replace questions: %w", err)
			}
		}

		if req.Settings != nil {
			if _, err := s.updateSettingsTx(ctx, tx, id, req.Settings); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz updated", "quiz_id", id)

	return s.GetByIDWithDetails(ctx, id, userID)
}

func (s *quizService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.InstructorID != userID {
		isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
		if err != nil || !isAdmin {
			return NewPermissionError(userID, id, "quiz", "delete", "not the quiz owner")
		}
	}

	if err := s.repo.Quiz().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	s.logger.Info("Quiz deleted", "quiz_id", id)
	return nil
}

// ===== LIST OPERATIONS =====

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters, userID string) (*QuizListResponse, error) {
	quizzes, total, err := s.repo.Quiz().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return s.buildQuizListResponse(ctx, quizzes, total, filters, userID), nil
}

func (s *quizService) GetByInstructor(ctx context.Context, instructorID string, filters repositories.QuizFilters) (*QuizListResponse, error) {
	quizzes, total, err := s.repo.Quiz().GetByInstructor(ctx, s.db, instructorID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get quizzes by instructor: %w", err)
	}
	return s.buildQuizListResponse(ctx, quizzes, total, filters, instructorID), nil
}

func (s *quizService) GetActive(ctx context.Context, filters repositories.QuizFilters) (*QuizListResponse, error) {
	quizzes, total, err := s.repo.Quiz().GetActive(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get active quizzes: %w", err)
	}
	return s.buildQuizListResponse(ctx, quizzes, total, filters, ""), nil
}

// ===== SETTINGS MANAGEMENT =====

func (s *quizService) UpdateSettings(ctx context.Context, quizID uint, req *QuizSettingsRequest, userID string) (*models.QuizSettings, error) {
	s.logger.Info("Updating quiz settings", "quiz_id", quizID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	isOwner, err := s.repo.Quiz().IsOwner(ctx, nil, quizID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to check quiz ownership: %w", err)
	}
	if !isOwner {
		return nil, NewPermissionError(userID, quizID, "quiz", "update_settings", "not the quiz owner")
	}

	var settings *models.QuizSettings
	err = s.db.Transaction(func(tx *gorm.DB) error {
		settings, err = s.updateSettingsTx(ctx, tx, quizID, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	return settings, nil
}

func (s *quizService) updateSettingsTx(ctx context.Context, tx *gorm.DB, quizID uint, req *QuizSettingsRequest) (*models.QuizSettings, error) {
	settings, err := s.repo.QuizSettings().GetByQuizID(ctx, tx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	applySettingsRequest(settings, req)

	// Normalize applies the grading cascade: turning grading off also turns
	// negative marking off, and turning grading back on leaves it off until
	// it is explicitly re-enabled.
	settings.Normalize()

	if err := s.repo.QuizSettings().Update(ctx, tx, settings); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	return settings, nil
}

func (s *quizService) SetActive(ctx context.Context, quizID uint, active bool, userID string) error {
	s.logger.Info("Setting quiz active state",
		"quiz_id", quizID,
		"active", active,
		"user_id", userID)

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.InstructorID != userID {
		return NewPermissionError(userID, quizID, "quiz", "set_active", "not the quiz owner")
	}

	_, err = s.UpdateSettings(ctx, quizID, &QuizSettingsRequest{Active: &active}, userID)
	if err != nil {
		return err
	}

	if s.notifier != nil {
		var notifyErr error
		if active {
			notifyErr = s.notifier.NotifyQuizPublished(ctx, quiz)
		} else {
			notifyErr = s.notifier.NotifyQuizClosed(ctx, quiz)
		}
		if notifyErr != nil {
			s.logger.Warn("Failed to publish quiz state event", "quiz_id", quizID, "error", notifyErr)
		}
	}

	return nil
}

// ===== PERMISSION CHECKS =====

func (s *quizService) CanEdit(ctx context.Context, quizID uint, userID string) (bool, error) {
	return s.repo.Quiz().IsOwner(ctx, nil, quizID, userID)
}

func (s *quizService) CanTake(ctx context.Context, quizID uint, studentID string) (bool, error) {
	settings, err := s.repo.QuizSettings().GetByQuizID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuizNotFound
		}
		return false, err
	}
	if !settings.Active {
		return false, nil
	}

	hasCompleted, err := s.repo.Attempt().HasCompletedAttempt(ctx, nil, quizID, studentID)
	if err != nil {
		return false, err
	}
	if hasCompleted && !settings.AllowRetakes {
		return false, nil
	}

	return true, nil
}

// ===== HELPERS =====

func (s *quizService) buildQuizResponse(ctx context.Context, quiz *models.Quiz, userID string) *QuizResponse {
	isOwner := quiz.InstructorID == userID

	response := &QuizResponse{
		Quiz:      quiz,
		CanEdit:   isOwner,
		CanDelete: isOwner,
	}

	if !isOwner && userID != "" {
		canTake, err := s.CanTake(ctx, quiz.ID, userID)
		if err != nil {
			s.logger.Debug("Failed to check can_take", "quiz_id", quiz.ID, "error", err)
		}
		response.CanTake = canTake
	}

	quiz.QuestionsCount = len(quiz.Questions)

	return response
}

func (s *quizService) buildQuizListResponse(ctx context.Context, quizzes []*models.Quiz, total int64, filters repositories.QuizFilters, userID string) *QuizListResponse {
	responses := make([]*QuizResponse, len(quizzes))
	for i, quiz := range quizzes {
		responses[i] = s.buildQuizResponse(ctx, quiz, userID)
	}

	size := filters.Limit
	if size <= 0 {
		size = len(responses)
	}
	page := 0
	if size > 0 {
		page = filters.Offset / size
	}

	return &QuizListResponse{
		Quizzes: responses,
		Total:   total,
		Page:    page,
		Size:    size,
	}
}

// defaultSettings is what a quiz gets when the create request carries no
// settings block: graded at one point per question, untimed, no deduction.
func defaultSettings() models.QuizSettings {
	return models.QuizSettings{
		GradingEnabled:        true,
		PointsPerQuestion:     1,
		NegativeMarking:       false,
		NegativeMarkingPoints: 0,
		TimerMinutes:          0,
		RandomizeQuestions:    false,
		LockedAnswers:         false,
		Active:                true,
		AllowRetakes:          false,
	}
}

func applySettingsRequest(settings *models.QuizSettings, req *models.QuizSettingsRequest) {
	if req == nil {
		return
	}
	if req.GradingEnabled != nil {
		settings.GradingEnabled = *req.GradingEnabled
	}
	if req.PointsPerQuestion != nil {
		settings.PointsPerQuestion = *req.PointsPerQuestion
	}
	if req.NegativeMarking != nil {
		settings.NegativeMarking = *req.NegativeMarking
	}
	if req.NegativeMarkingPoints != nil {
		settings.NegativeMarkingPoints = *req.NegativeMarkingPoints
	}
	if req.TimerMinutes != nil {
		settings.TimerMinutes = *req.TimerMinutes
	}
	if req.RandomizeQuestions != nil {
		settings.RandomizeQuestions = *req.RandomizeQuestions
	}
	if req.LockedAnswers != nil {
		settings.LockedAnswers = *req.LockedAnswers
	}
	if req.Active != nil {
		settings.Active = *req.Active
	}
	if req.AllowRetakes != nil {
		settings.AllowRetakes = *req.AllowRetakes
	}
}

// buildQuestions converts editor requests into question rows. Options
// without an id get a server-assigned one; scoring keys on these ids for
// the life of the quiz.
func buildQuestions(reqs []models.QuestionCreateRequest) ([]*models.Question, error) {
	questions := make([]*models.Question, len(reqs))
	for i, qr := range reqs {
		opts := make([]models.Option, len(qr.Options))
		for j, or := range qr.Options {
			id := or.ID
			if id == "" {
				id = uuid.New().String()
			}
			opts[j] = models.Option{
				ID:        id,
				Text:      or.Text,
				IsCorrect: or.IsCorrect,
				ImageURL:  or.ImageURL,
			}
		}

		question := &models.Question{
			Order:            i,
			Text:             qr.Text,
			ImageURL:         qr.ImageURL,
			Explanation:      qr.Explanation,
			RandomizeOptions: qr.RandomizeOptions,
		}
		if err := question.SetOptions(opts); err != nil {
			return nil, fmt.Errorf("failed to encode options for question %d: %w", i, err)
		}
		questions[i] = question
	}
	return questions, nil
}

// stripAnswerKey removes correctness flags and explanations from a quiz's
// questions in place.
func stripAnswerKey(quiz *models.Quiz) error {
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		opts, err := q.DecodeOptions()
		if err != nil {
			return err
		}
		for j := range opts {
			opts[j].IsCorrect = false
		}
		if err := q.SetOptions(opts); err != nil {
			return err
		}
		q.Explanation = nil
	}
	return nil
}
