package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/models"
)

// AttemptRepository interface for attempt operations
type AttemptRepository interface {
	// Basic CRUD operations. A finished attempt is immutable; Update is
	// only ever applied to in_progress rows (answer map, final freeze).
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error

	// Query operations
	GetByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) ([]*models.Attempt, error)
	GetActiveAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.Attempt, error)
	GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters AttemptFilters) ([]*models.Attempt, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AttemptFilters) ([]*models.Attempt, int64, error)

	// Gating checks
	HasCompletedAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (bool, error)
	HasActiveAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (bool, error)

	// Timeout sweep: in_progress attempts whose deadline passed before now.
	GetExpiredInProgress(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.Attempt, error)

	// Statistics
	GetQuizAggregate(ctx context.Context, tx *gorm.DB, quizID uint) (*QuizAggregate, error)
}
