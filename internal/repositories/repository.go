package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// IsNotFoundError reports whether err means the row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Repository aggregates the per-domain repository interfaces.
type Repository interface {
	// Quiz domain
	Quiz() QuizRepository
	QuizSettings() QuizSettingsRepository
	Question() QuestionRepository

	// Attempt domain
	Attempt() AttemptRepository

	// User domain (read-only; identity lives with the external provider)
	User() UserRepository

	// Dashboard domain
	Dashboard() DashboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
