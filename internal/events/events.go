package events

import (
	"context"
	"time"
)

// Event types published by the quiz service
const (
	EventAttemptSubmitted = "attempt.submitted"
	EventAttemptTimedOut  = "attempt.timed_out"
	EventQuizPublished    = "quiz.published"
	EventQuizClosed       = "quiz.closed"
)

// Event is the envelope for every message put on the bus
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// AttemptSubmittedEvent carries the final result of a finished attempt
type AttemptSubmittedEvent struct {
	AttemptID      uint    `json:"attempt_id"`
	QuizID         uint    `json:"quiz_id"`
	QuizTitle      string  `json:"quiz_title"`
	StudentID      string  `json:"student_id"`
	Score          float64 `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	EndReason      string  `json:"end_reason"`
}

// QuizPublishedEvent is emitted when an instructor opens a quiz for responses
type QuizPublishedEvent struct {
	QuizID       uint   `json:"quiz_id"`
	QuizTitle    string `json:"quiz_title"`
	InstructorID string `json:"instructor_id"`
}

// EventPublisher abstracts the message bus
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
