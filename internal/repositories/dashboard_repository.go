package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DashboardRepository interface for instructor analytics queries
type DashboardRepository interface {
	// Instructor-wide counters
	GetInstructorStats(ctx context.Context, tx *gorm.DB, instructorID string) (*InstructorStats, error)

	// Per-quiz material for the analytics page
	GetScoreDistribution(ctx context.Context, tx *gorm.DB, quizID uint, bucketSize float64) ([]ScoreDistributionData, error)
	GetRecentAttempts(ctx context.Context, tx *gorm.DB, quizID uint, limit int) ([]RecentAttemptData, error)

	// Per-question answer counts across all completed attempts of a quiz
	GetAnswerCounts(ctx context.Context, tx *gorm.DB, quizID uint) (map[uint]map[string]int, error)
}

// Data structures for dashboard responses

type ScoreDistributionData struct {
	Bucket float64 `json:"bucket"` // lower bound of the bucket
	Count  int64   `json:"count"`
}

type RecentAttemptData struct {
	ID              uint       `json:"id"`
	StudentID       string     `json:"student_id"`
	StudentName     string     `json:"student_name"`
	StudentIDNumber string     `json:"student_id_number"`
	Score           float64    `json:"score"`
	TotalQuestions  int        `json:"total_questions"`
	TimeTaken       int        `json:"time_taken"`
	CompletedAt     *time.Time `json:"completed_at"`
}
