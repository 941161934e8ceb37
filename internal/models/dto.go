package models

import (
	"time"
)

type QuizCreateRequest struct {
	Title       string                  `json:"title" validate:"required,min=1,max=200"`
	Description *string                 `json:"description" validate:"omitempty,max=1000"`
	Questions   []QuestionCreateRequest `json:"questions" validate:"required,min=1,dive"`
	Settings    *QuizSettingsRequest    `json:"settings"`
}

type QuizUpdateRequest struct {
	Title       *string                 `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string                 `json:"description" validate:"omitempty,max=1000"`
	Questions   []QuestionCreateRequest `json:"questions" validate:"omitempty,min=1,dive"`
	Settings    *QuizSettingsRequest    `json:"settings"`
}

type QuestionCreateRequest struct {
	Text             string                `json:"text" validate:"required"`
	ImageURL         *string               `json:"image_url" validate:"omitempty,url,max=500"`
	Explanation      *string               `json:"explanation" validate:"omitempty,max=2000"`
	RandomizeOptions bool                  `json:"randomize_options"`
	Options          []OptionCreateRequest `json:"options" validate:"required,min=2,max=10,dive"`
}

type OptionCreateRequest struct {
	ID        string  `json:"id"` // assigned server-side when empty
	Text      string  `json:"text" validate:"required"`
	IsCorrect bool    `json:"is_correct"`
	ImageURL  *string `json:"image_url" validate:"omitempty,url,max=500"`
}

// QuizSettingsRequest carries partial settings updates; nil fields keep the
// stored value. Numeric fields are coerced through QuizSettings.Normalize.
type QuizSettingsRequest struct {
	GradingEnabled        *bool    `json:"grading_enabled"`
	PointsPerQuestion     *float64 `json:"points_per_question" validate:"omitempty,min=0"`
	NegativeMarking       *bool    `json:"negative_marking"`
	NegativeMarkingPoints *float64 `json:"negative_marking_points" validate:"omitempty,min=0"`
	TimerMinutes          *int     `json:"timer_minutes" validate:"omitempty,min=0,max=600"`
	RandomizeQuestions    *bool    `json:"randomize_questions"`
	LockedAnswers         *bool    `json:"locked_answers"`
	Active                *bool    `json:"active"`
	AllowRetakes          *bool    `json:"allow_retakes"`
}

type RecordAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	OptionID   string `json:"option_id" validate:"required"`
}

// ===== PAGINATION & FILTERING =====

type ListQuizzesParams struct {
	Page         int     `json:"page" validate:"min=0"`
	Size         int     `json:"size" validate:"min=1,max=100"`
	Search       string  `json:"search"`
	InstructorID *string `json:"instructor_id"`
	ActiveOnly   bool    `json:"active_only"`
	SortBy       string  `json:"sort_by"`
	SortDir      string  `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
}

type ListAttemptsParams struct {
	Page      int           `json:"page" validate:"min=0"`
	Size      int           `json:"size" validate:"min=1,max=100"`
	QuizID    *uint         `json:"quiz_id"`
	StudentID *string       `json:"student_id"`
	Status    AttemptStatus `json:"status"`
	DateFrom  *time.Time    `json:"date_from"`
	DateTo    *time.Time    `json:"date_to"`
	SortBy    string        `json:"sort_by"`
	SortDir   string        `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
}

type PaginatedResponse struct {
	Content          interface{} `json:"content"`
	TotalElements    int64       `json:"total_elements"`
	TotalPages       int         `json:"total_pages"`
	Size             int         `json:"size"`
	Page             int         `json:"page"`
	First            bool        `json:"first"`
	Last             bool        `json:"last"`
	NumberOfElements int         `json:"number_of_elements"`
	Empty            bool        `json:"empty"`
}

// ===== STATISTICS & ANALYTICS DTOS =====

type ScoreBucket struct {
	Range string `json:"range"` // "0-10", "11-20", etc.
	Count int    `json:"count"`
}

type QuizStats struct {
	QuizID            uint                `json:"quiz_id"`
	TotalAttempts     int                 `json:"total_attempts"`
	CompletedAttempts int                 `json:"completed_attempts"`
	TimedOutAttempts  int                 `json:"timed_out_attempts"`
	AverageScore      float64             `json:"average_score"`
	HighestScore      float64             `json:"highest_score"`
	LowestScore       float64             `json:"lowest_score"`
	AverageTime       int                 `json:"average_time"` // seconds
	ScoreDistribution []ScoreBucket       `json:"score_distribution"`
	QuestionStats     []QuestionStatsItem `json:"question_stats"`
}

type QuestionStatsItem struct {
	QuestionID   uint    `json:"question_id"`
	QuestionText string  `json:"question_text"`
	CorrectCount int     `json:"correct_count"`
	WrongCount   int     `json:"wrong_count"`
	SkippedCount int     `json:"skipped_count"`
	CorrectRate  float64 `json:"correct_rate"`
}

type AttemptSummary struct {
	ID              uint          `json:"id"`
	QuizID          uint          `json:"quiz_id"`
	StudentID       string        `json:"student_id"`
	StudentName     string        `json:"student_name"`
	StudentIDNumber string        `json:"student_id_number"`
	Status          AttemptStatus `json:"status"`
	Score           float64       `json:"score"`
	TotalQuestions  int           `json:"total_questions"`
	TimeTaken       int           `json:"time_taken"`
	CompletedAt     *time.Time    `json:"completed_at"`
}

type QuizSummary struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Description    *string   `json:"description"`
	InstructorID   string    `json:"instructor_id"`
	QuestionsCount int       `json:"questions_count"`
	TimerMinutes   int       `json:"timer_minutes"`
	Active         bool      `json:"active"`
	AttemptCount   int       `json:"attempt_count"`
	AvgScore       float64   `json:"avg_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// ===== VALIDATION RESPONSES =====

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
	Code    string `json:"code"`
}
