package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quizcraft/quiz-service/internal/models"
)

func TestTimeoutSweeper_SettlesExpiredAttempts(t *testing.T) {
	env := newAttemptTestEnv(t)
	settings := defaultAttemptSettings()
	settings.TimerMinutes = 30
	settings.AllowRetakes = true
	quizID := env.seedQuiz(t, settings)
	ctx := context.Background()

	// An attempt whose client went away past the deadline
	expired, err := env.service.Start(ctx, &StartAttemptRequest{QuizID: quizID}, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := env.service.RecordAnswer(ctx, expired.ID, &RecordAnswerRequest{QuestionID: 1, OptionID: "a"}, "student-1"); err != nil {
		t.Fatalf("RecordAnswer() error = %v", err)
	}
	past := time.Now().Add(-time.Minute)
	env.repo.attempts.store[expired.ID].DeadlineAt = &past

	// A second student still inside the window
	env.repo.users.store["student-2"] = &models.User{ID: "student-2", Role: models.RoleStudent}
	live, err := env.service.Start(ctx, &StartAttemptRequest{QuizID: quizID}, "student-2")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	slogLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sweeper := NewTimeoutSweeper(env.repo, env.service, slogLogger, time.Minute)
	sweeper.sweep()

	settled := env.repo.attempts.store[expired.ID]
	if settled.Status != models.AttemptTimeOut {
		t.Errorf("expired attempt status = %v, expected timeout", settled.Status)
	}
	// The sweep scores what was on the sheet
	if settled.Score != 1 {
		t.Errorf("expired attempt score = %v, expected 1", settled.Score)
	}

	untouched := env.repo.attempts.store[live.ID]
	if untouched.Status != models.AttemptInProgress {
		t.Errorf("live attempt status = %v, expected in_progress", untouched.Status)
	}

	// Sweeping again finds nothing to do
	sweeper.sweep()
	if env.repo.attempts.store[expired.ID].Status != models.AttemptTimeOut {
		t.Error("second sweep disturbed a settled attempt")
	}
}
