package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Quiz struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	Title        string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description  *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	InstructorID string  `json:"instructor_id" gorm:"not null;index;size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Settings   QuizSettings `json:"settings" gorm:"foreignKey:QuizID"`
	Questions  []Question   `json:"questions" gorm:"foreignKey:QuizID"`
	Attempts   []Attempt    `json:"-" gorm:"foreignKey:QuizID"`
	Instructor User         `json:"instructor" gorm:"foreignKey:InstructorID"`

	// Computed fields (not stored)
	QuestionsCount int     `json:"questions_count" gorm:"-"`
	AttemptCount   int     `json:"attempt_count" gorm:"-"`
	AvgScore       float64 `json:"avg_score" gorm:"-"`
}

// QuizSettings is the grading and presentation policy for one quiz. A copy
// is frozen into every attempt at submission time, so later edits never
// change how a historical attempt was scored.
type QuizSettings struct {
	QuizID    uint      `json:"quiz_id" gorm:"primaryKey;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`

	// Scoring policy
	GradingEnabled        bool    `json:"grading_enabled" gorm:"not null;default:true;comment:Whether the score is meaningful"`
	PointsPerQuestion     float64 `json:"points_per_question" gorm:"not null;default:1" validate:"min=0"`
	NegativeMarking       bool    `json:"negative_marking" gorm:"not null;default:false;comment:Deduct points for wrong answers"`
	NegativeMarkingPoints float64 `json:"negative_marking_points" gorm:"not null;default:0" validate:"min=0"`

	// Presentation policy
	TimerMinutes       int  `json:"timer_minutes" gorm:"not null;default:0;comment:0 means unlimited" validate:"min=0,max=600"`
	RandomizeQuestions bool `json:"randomize_questions" gorm:"not null;default:false;comment:Randomize question order per attempt"`
	LockedAnswers      bool `json:"locked_answers" gorm:"not null;default:false;comment:An answered question cannot be changed"`

	// Attempt gating
	Active       bool `json:"active" gorm:"not null;default:true;comment:Whether new attempts may start"`
	AllowRetakes bool `json:"allow_retakes" gorm:"not null;default:false"`
}

type Question struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	QuizID uint `json:"quiz_id" gorm:"not null;index"`
	Order  int  `json:"order" gorm:"not null;default:0"`

	Text        string  `json:"text" gorm:"type:text;not null" validate:"required"`
	ImageURL    *string `json:"image_url" gorm:"size:500"`
	Explanation *string `json:"explanation" gorm:"type:text"` // shown post-submission only

	RandomizeOptions bool `json:"randomize_options" gorm:"not null;default:false"`

	// Options stored as JSONB ([]Option)
	Options datatypes.JSON `json:"options" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Option is one selectable answer. IDs are unique within their question and
// are the only thing scoring keys on; display position never matters.
type Option struct {
	ID        string  `json:"id"`
	Text      string  `json:"text" validate:"required"`
	IsCorrect bool    `json:"is_correct"`
	ImageURL  *string `json:"image_url,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (QuizSettings) TableName() string {
	return "quiz_settings"
}

func (Question) TableName() string {
	return "questions"
}

// DecodeOptions unmarshals the JSONB options column.
func (q *Question) DecodeOptions() ([]Option, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	var opts []Option
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// SetOptions marshals opts into the JSONB options column.
func (q *Question) SetOptions(opts []Option) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	q.Options = data
	return nil
}

// CorrectOptionID returns the id of the first option flagged correct, or ""
// when no option is flagged. A question with no correct option is never
// scoreable; it still counts toward the total and can only deduct.
func CorrectOptionID(opts []Option) string {
	for _, opt := range opts {
		if opt.IsCorrect {
			return opt.ID
		}
	}
	return ""
}

// Normalize coerces the numeric policy fields into their valid ranges and
// applies the grading cascade: grading off forces negative marking off.
// Re-enabling grading never re-enables negative marking on its own.
func (s *QuizSettings) Normalize() {
	if s.PointsPerQuestion <= 0 {
		s.PointsPerQuestion = 1
	}
	if s.NegativeMarkingPoints < 0 {
		s.NegativeMarkingPoints = 0
	}
	if s.TimerMinutes < 0 {
		s.TimerMinutes = 0
	}
	if !s.GradingEnabled {
		s.NegativeMarking = false
	}
}

// Timed reports whether attempts at this quiz run against a deadline.
func (s *QuizSettings) Timed() bool {
	return s.TimerMinutes > 0
}
