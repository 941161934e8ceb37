package services

import (
	"context"
	"log/slog"

	"github.com/quizcraft/quiz-service/internal/events"
	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

// notificationEventService publishes domain events for other services
// (notifications, gradebooks) to consume. Publishing is always best effort
// from the caller's perspective; a dead broker never fails a submit.
type notificationEventService struct {
	repo           repositories.Repository
	eventPublisher events.EventPublisher
	logger         *slog.Logger
}

func NewNotificationEventService(repo repositories.Repository, eventPublisher events.EventPublisher, logger *slog.Logger) NotificationEventService {
	return &notificationEventService{
		repo:           repo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

func (s *notificationEventService) NotifyAttemptSubmitted(ctx context.Context, attempt *models.Attempt) error {
	eventType := events.EventAttemptSubmitted
	if attempt.Status == models.AttemptTimeOut {
		eventType = events.EventAttemptTimedOut
	}

	endReason := ""
	if attempt.EndReason != nil {
		endReason = *attempt.EndReason
	}

	return s.eventPublisher.Publish(ctx, &events.Event{
		Type: eventType,
		Data: &events.AttemptSubmittedEvent{
			AttemptID:      attempt.ID,
			QuizID:         attempt.QuizID,
			QuizTitle:      attempt.QuizTitle,
			StudentID:      attempt.StudentID,
			Score:          attempt.Score,
			TotalQuestions: attempt.TotalQuestions,
			EndReason:      endReason,
		},
	})
}

func (s *notificationEventService) NotifyQuizPublished(ctx context.Context, quiz *models.Quiz) error {
	return s.eventPublisher.Publish(ctx, &events.Event{
		Type: events.EventQuizPublished,
		Data: &events.QuizPublishedEvent{
			QuizID:       quiz.ID,
			QuizTitle:    quiz.Title,
			InstructorID: quiz.InstructorID,
		},
	})
}

func (s *notificationEventService) NotifyQuizClosed(ctx context.Context, quiz *models.Quiz) error {
	return s.eventPublisher.Publish(ctx, &events.Event{
		Type: events.EventQuizClosed,
		Data: &events.QuizPublishedEvent{
			QuizID:       quiz.ID,
			QuizTitle:    quiz.Title,
			InstructorID: quiz.InstructorID,
		},
	})
}
