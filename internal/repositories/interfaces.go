package repositories

import (
	"time"

	"github.com/quizcraft/quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	InstructorID *string    `json:"instructor_id"`
	ActiveOnly   bool       `json:"active_only"`
	Search       string     `json:"search"`
	DateFrom     *time.Time `json:"date_from"`
	DateTo       *time.Time `json:"date_to"`
	Limit        int        `json:"limit"`
	Offset       int        `json:"offset"`
	SortBy       string     `json:"sort_by"`    // "created_at", "title"
	SortOrder    string     `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	StudentID *string               `json:"student_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

// QuizAggregate is the raw attempt aggregate for one quiz; the dashboard
// service layers per-question breakdowns on top.
type QuizAggregate struct {
	TotalAttempts     int     `json:"total_attempts"`
	CompletedAttempts int     `json:"completed_attempts"`
	TimedOutAttempts  int     `json:"timed_out_attempts"`
	AverageScore      float64 `json:"average_score"`
	HighestScore      float64 `json:"highest_score"`
	LowestScore       float64 `json:"lowest_score"`
	AverageTimeSpent  int     `json:"average_time_spent"`
}

type InstructorStats struct {
	TotalQuizzes  int `json:"total_quizzes"`
	ActiveQuizzes int `json:"active_quizzes"`
	TotalAttempts int `json:"total_attempts"`
}
