package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/quizcraft/quiz-service/internal/models"
)

func newTestDashboardService(repo *mockRepository) DashboardService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDashboardService(repo, nil, logger)
}

func TestGetQuizOverview(t *testing.T) {
	repo := newMockRepository()
	service := newTestDashboardService(repo)
	ctx := context.Background()

	desc := "Fractions and decimals"
	mathID := repo.seedQuiz(&models.Quiz{
		Title:        "Math basics",
		Description:  &desc,
		InstructorID: "instructor-1",
		Settings:     models.QuizSettings{GradingEnabled: true, PointsPerQuestion: 1, TimerMinutes: 15, Active: true},
		Questions: []models.Question{
			makeQuestion(t, 1, "a", "a", "b"),
			makeQuestion(t, 2, "a", "a", "b"),
		},
	})
	historyID := repo.seedQuiz(&models.Quiz{
		Title:        "History",
		InstructorID: "instructor-1",
		Settings:     models.QuizSettings{GradingEnabled: true, PointsPerQuestion: 1},
		Questions:    []models.Question{makeQuestion(t, 3, "a", "a", "b")},
	})
	repo.seedQuiz(&models.Quiz{
		Title:        "Another instructor's quiz",
		InstructorID: "instructor-2",
		Settings:     models.QuizSettings{Active: true},
	})

	repo.attempts.store[1] = &models.Attempt{ID: 1, QuizID: mathID, StudentID: "student-1", Status: models.AttemptCompleted, Score: 1}
	repo.attempts.store[2] = &models.Attempt{ID: 2, QuizID: mathID, StudentID: "student-2", Status: models.AttemptCompleted, Score: 3}
	repo.attempts.nextID = 2

	overview, err := service.GetQuizOverview(ctx, "instructor-1")
	if err != nil {
		t.Fatalf("GetQuizOverview() error = %v", err)
	}
	if len(overview) != 2 {
		t.Fatalf("got %d summaries, expected 2 for the instructor's own quizzes", len(overview))
	}

	byID := make(map[uint]models.QuizSummary, len(overview))
	for _, summary := range overview {
		byID[summary.ID] = summary
	}

	math := byID[mathID]
	if math.Title != "Math basics" || math.QuestionsCount != 2 {
		t.Errorf("math summary = %+v, expected 2 questions", math)
	}
	if math.Description == nil || *math.Description != desc {
		t.Errorf("Description = %v, expected %q", math.Description, desc)
	}
	if !math.Active || math.TimerMinutes != 15 {
		t.Errorf("settings fields = active %v timer %d, expected active with a 15 minute timer", math.Active, math.TimerMinutes)
	}
	if math.AttemptCount != 2 || math.AvgScore != 2 {
		t.Errorf("attempt fields = %d attempts avg %v, expected 2 attempts averaging 2", math.AttemptCount, math.AvgScore)
	}

	history := byID[historyID]
	if history.Active {
		t.Error("history quiz should not be marked active")
	}
	if history.AttemptCount != 0 || history.AvgScore != 0 {
		t.Errorf("attempt fields = %d/%v, expected zeroes for an unattempted quiz", history.AttemptCount, history.AvgScore)
	}
}

func TestGetQuizOverviewEmpty(t *testing.T) {
	repo := newMockRepository()
	service := newTestDashboardService(repo)

	overview, err := service.GetQuizOverview(context.Background(), "instructor-1")
	if err != nil {
		t.Fatalf("GetQuizOverview() error = %v", err)
	}
	if len(overview) != 0 {
		t.Errorf("got %d summaries, expected none for an instructor with no quizzes", len(overview))
	}
}
