package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptTimeOut    AttemptStatus = "timeout"
)

const (
	AttemptEndReasonCompleted = "completed"
	AttemptEndReasonTimeout   = "time_out"
)

// Attempt is one student's pass through a quiz. While in progress only the
// answer map mutates; once the status leaves in_progress the row is frozen.
type Attempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	QuizID    uint          `json:"quiz_id" gorm:"not null;index:idx_attempt_quiz_student"`
	StudentID string        `json:"student_id" gorm:"not null;index:idx_attempt_quiz_student;size:255"`
	Status    AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	// Denormalized for analytics display; filled from the identity
	// provider at start so the dashboard never joins against it.
	QuizTitle       string `json:"quiz_title" gorm:"size:200"`
	StudentName     string `json:"student_name" gorm:"size:255"`
	StudentEmail    string `json:"student_email" gorm:"size:255"`
	StudentIDNumber string `json:"student_id_number" gorm:"size:64;default:N/A"`

	// Timing
	StartedAt   *time.Time `json:"started_at"`
	DeadlineAt  *time.Time `json:"deadline_at" gorm:"index"` // nil when untimed
	CompletedAt *time.Time `json:"completed_at"`
	TimeTaken   int        `json:"time_taken"` // seconds
	EndReason   *string    `json:"end_reason" gorm:"type:text"`

	// Scoring
	Score          float64 `json:"score"`
	TotalQuestions int     `json:"total_questions"`

	// Answer map (question id -> chosen option id), absent entries are
	// skipped questions. Stored as JSONB.
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	// Copy of the quiz settings in effect at submission time.
	SettingsSnapshot datatypes.JSON `json:"settings" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz    Quiz `json:"-" gorm:"foreignKey:QuizID"`
	Student User `json:"-" gorm:"foreignKey:StudentID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// DecodeAnswers unmarshals the JSONB answer map. A nil column decodes to an
// empty, usable map.
func (a *Attempt) DecodeAnswers() (map[string]string, error) {
	answers := make(map[string]string)
	if len(a.Answers) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(a.Answers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// SetAnswers marshals the answer map into the JSONB column.
func (a *Attempt) SetAnswers(answers map[string]string) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	a.Answers = data
	return nil
}

// DecodeSettings unmarshals the frozen settings snapshot.
func (a *Attempt) DecodeSettings() (*QuizSettings, error) {
	if len(a.SettingsSnapshot) == 0 {
		return nil, nil
	}
	var s QuizSettings
	if err := json.Unmarshal(a.SettingsSnapshot, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// AttemptSession is the per-attempt working state held in the session store
// (never in postgres): the absolute deadline and the presentation ordering
// fixed at start, so a reload replays the same view instead of reshuffling.
type AttemptSession struct {
	AttemptID     uint                `json:"attempt_id"`
	QuizID        uint                `json:"quiz_id"`
	StudentID     string              `json:"student_id"`
	StartedAt     time.Time           `json:"started_at"`
	Deadline      *time.Time          `json:"deadline,omitempty"` // nil when the quiz is untimed
	QuestionOrder []uint              `json:"question_order"`
	OptionOrder   map[string][]string `json:"option_order"` // question id -> option ids, only for shuffled questions
}

// Expired reports whether the session's deadline has passed at now.
// Untimed sessions never expire.
func (s *AttemptSession) Expired(now time.Time) bool {
	return s.Deadline != nil && !now.Before(*s.Deadline)
}

// Remaining returns the whole seconds left before the deadline, floored at
// zero. Untimed sessions return -1.
func (s *AttemptSession) Remaining(now time.Time) int {
	if s.Deadline == nil {
		return -1
	}
	left := int(s.Deadline.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}
