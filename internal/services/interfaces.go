package services

import (
	"context"
	"time"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use shared request types from models
type CreateQuizRequest = models.QuizCreateRequest
type UpdateQuizRequest = models.QuizUpdateRequest
type QuizSettingsRequest = models.QuizSettingsRequest
type RecordAnswerRequest = models.RecordAnswerRequest

type QuizResponse struct {
	*models.Quiz
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanTake   bool `json:"can_take"`
}

type QuizListResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Size    int             `json:"size"`
}

// ===== ATTEMPT RELATED DTOs =====

type StartAttemptRequest struct {
	QuizID uint `json:"quiz_id" validate:"required"`
}

// OptionView is an option as shown to a student mid-attempt. Correctness
// flags never leave the server while the attempt is in progress.
type OptionView struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	ImageURL *string `json:"image_url,omitempty"`
}

// QuestionView is a question in the order fixed for this attempt, with the
// student's current selection (empty when skipped so far).
type QuestionView struct {
	ID               uint         `json:"id"`
	Text             string       `json:"text"`
	ImageURL         *string      `json:"image_url,omitempty"`
	Options          []OptionView `json:"options"`
	SelectedOptionID string       `json:"selected_option_id,omitempty"`
}

type AttemptResponse struct {
	*models.Attempt
	RemainingSeconds int            `json:"remaining_seconds"` // -1 when untimed
	LockedAnswers    bool           `json:"locked_answers"`
	CanSubmit        bool           `json:"can_submit"`
	Questions        []QuestionView `json:"questions,omitempty"`
}

// QuestionResult is the per-question breakdown of a finished attempt
type QuestionResult struct {
	QuestionID       uint    `json:"question_id"`
	Text             string  `json:"text"`
	SelectedOptionID string  `json:"selected_option_id,omitempty"`
	CorrectOptionID  string  `json:"correct_option_id,omitempty"`
	Correct          bool    `json:"correct"`
	Skipped          bool    `json:"skipped"`
	PointsAwarded    float64 `json:"points_awarded"`
	Explanation      *string `json:"explanation,omitempty"`
}

// AttemptResult is the full post-submission view of an attempt
type AttemptResult struct {
	AttemptID      uint                 `json:"attempt_id"`
	QuizID         uint                 `json:"quiz_id"`
	QuizTitle      string               `json:"quiz_title"`
	Status         models.AttemptStatus `json:"status"`
	GradingEnabled bool                 `json:"grading_enabled"`
	Score          float64              `json:"score"`
	TotalQuestions int                  `json:"total_questions"`
	TimeTaken      int                  `json:"time_taken"`
	EndReason      string               `json:"end_reason"`
	CompletedAt    *time.Time           `json:"completed_at"`
	Breakdown      []QuestionResult     `json:"breakdown,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*models.AttemptSummary `json:"attempts"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	Size     int                      `json:"size"`
}

// ===== SERVICE INTERFACES =====

type QuizService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuizRequest, instructorID string) (*QuizResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	GetByIDWithDetails(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List operations
	List(ctx context.Context, filters repositories.QuizFilters, userID string) (*QuizListResponse, error)
	GetByInstructor(ctx context.Context, instructorID string, filters repositories.QuizFilters) (*QuizListResponse, error)
	GetActive(ctx context.Context, filters repositories.QuizFilters) (*QuizListResponse, error)

	// Settings management
	UpdateSettings(ctx context.Context, quizID uint, req *QuizSettingsRequest, userID string) (*models.QuizSettings, error)
	SetActive(ctx context.Context, quizID uint, active bool, userID string) error

	// Permission checks
	CanEdit(ctx context.Context, quizID uint, userID string) (bool, error)
	CanTake(ctx context.Context, quizID uint, studentID string) (bool, error)
}

type AttemptService interface {
	// Core attempt operations
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	GetCurrent(ctx context.Context, quizID uint, studentID string) (*AttemptResponse, error)
	RecordAnswer(ctx context.Context, attemptID uint, req *RecordAnswerRequest, studentID string) (*AttemptResponse, error)
	Submit(ctx context.Context, attemptID uint, studentID string) (*AttemptResult, error)

	// Time management
	GetTimeRemaining(ctx context.Context, attemptID uint, studentID string) (int, error) // seconds, -1 when untimed
	HandleTimeout(ctx context.Context, attemptID uint) error

	// Post-submission review
	Review(ctx context.Context, attemptID uint, userID string) (*AttemptResult, error)

	// List operations
	GetByQuiz(ctx context.Context, quizID uint, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error)
	GetByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) (*AttemptListResponse, error)
}

type GradingService interface {
	// CalculateScore applies the scoring policy to an answer map. It is pure
	// over its inputs and safe to re-run against a frozen snapshot.
	CalculateScore(settings *models.QuizSettings, questions []models.Question, answers map[string]string) (float64, []QuestionResult, error)

	// ScoreAttempt grades a finished attempt from its frozen snapshot.
	ScoreAttempt(ctx context.Context, attempt *models.Attempt, questions []models.Question) (float64, []QuestionResult, error)
}

type DashboardService interface {
	GetInstructorStats(ctx context.Context, instructorID string) (*repositories.InstructorStats, error)
	GetQuizOverview(ctx context.Context, instructorID string) ([]models.QuizSummary, error)
	GetQuizStats(ctx context.Context, quizID uint, userID string) (*models.QuizStats, error)
	GetRecentAttempts(ctx context.Context, quizID uint, limit int, userID string) ([]repositories.RecentAttemptData, error)
}

type ExportService interface {
	// ExportQuizResults builds an xlsx workbook of every attempt at a quiz.
	// Returns the file bytes and a suggested filename.
	ExportQuizResults(ctx context.Context, quizID uint, userID string) ([]byte, string, error)
}

type NotificationEventService interface {
	NotifyAttemptSubmitted(ctx context.Context, attempt *models.Attempt) error
	NotifyQuizPublished(ctx context.Context, quiz *models.Quiz) error
	NotifyQuizClosed(ctx context.Context, quiz *models.Quiz) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Quiz() QuizService
	Attempt() AttemptService
	Grading() GradingService
	Dashboard() DashboardService
	Export() ExportService
	Notification() NotificationEventService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
