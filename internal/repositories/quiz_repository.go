package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/models"
)

// QuizRepository interface for quiz-specific operations
type QuizRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) // include settings + questions
	Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters QuizFilters) ([]*models.Quiz, int64, error)
	GetByInstructor(ctx context.Context, tx *gorm.DB, instructorID string, filters QuizFilters) ([]*models.Quiz, int64, error)
	GetActive(ctx context.Context, tx *gorm.DB, filters QuizFilters) ([]*models.Quiz, int64, error)

	// Validation and checks
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	IsOwner(ctx context.Context, tx *gorm.DB, id uint, instructorID string) (bool, error)
}

// QuizSettingsRepository interface for quiz settings operations
type QuizSettingsRepository interface {
	Create(ctx context.Context, tx *gorm.DB, settings *models.QuizSettings) error
	GetByQuizID(ctx context.Context, tx *gorm.DB, quizID uint) (*models.QuizSettings, error)
	Update(ctx context.Context, tx *gorm.DB, settings *models.QuizSettings) error
}

// QuestionRepository interface for question operations within a quiz
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Bulk operations used by the quiz editor: the canonical question list
	// of a quiz is replaced as a whole on save.
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	ReplaceForQuiz(ctx context.Context, tx *gorm.DB, quizID uint, questions []*models.Question) error

	// Query operations
	GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error)
	CountByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error)
}
