package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quizcraft/quiz-service/internal/events"
	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/validator"
)

type quizTestEnv struct {
	service   QuizService
	repo      *mockRepository
	publisher *events.MockEventPublisher
}

func newQuizTestEnv(t *testing.T) *quizTestEnv {
	t.Helper()

	slogLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(slogLogger)
	notifier := NewNotificationEventService(repo, publisher, slogLogger)

	return &quizTestEnv{
		service:   NewQuizService(repo, db, slogLogger, validator.New(), notifier),
		repo:      repo,
		publisher: publisher,
	}
}

func validCreateRequest() *CreateQuizRequest {
	return &CreateQuizRequest{
		Title: "Geography basics",
		Questions: []models.QuestionCreateRequest{
			{
				Text: "Capital of France?",
				Options: []models.OptionCreateRequest{
					{Text: "Paris", IsCorrect: true},
					{Text: "Lyon"},
				},
			},
			{
				Text: "Capital of Japan?",
				Options: []models.OptionCreateRequest{
					{Text: "Tokyo", IsCorrect: true},
					{Text: "Osaka"},
				},
			},
		},
	}
}

func TestCreateQuiz_Defaults(t *testing.T) {
	env := newQuizTestEnv(t)

	resp, err := env.service.Create(context.Background(), validCreateRequest(), "instructor-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !resp.CanEdit || !resp.CanDelete {
		t.Error("creator should be able to edit and delete")
	}
	if len(resp.Questions) != 2 {
		t.Fatalf("got %d questions, expected 2", len(resp.Questions))
	}

	settings := env.repo.settings.store[resp.ID]
	if settings == nil {
		t.Fatal("expected settings row to be created")
	}
	if !settings.GradingEnabled || settings.PointsPerQuestion != 1 {
		t.Errorf("default scoring = %+v, expected grading on at 1 point", settings)
	}
	if settings.TimerMinutes != 0 {
		t.Errorf("TimerMinutes = %d, expected untimed by default", settings.TimerMinutes)
	}
	if !settings.Active {
		t.Error("a new quiz should accept responses by default")
	}
	if settings.NegativeMarking || settings.NegativeMarkingPoints != 0 {
		t.Errorf("default deduction = %+v, expected negative marking off with no penalty", settings)
	}

	// Options without ids got server-assigned ones
	for _, q := range resp.Questions {
		opts, err := q.DecodeOptions()
		if err != nil {
			t.Fatalf("DecodeOptions() error = %v", err)
		}
		for _, opt := range opts {
			if opt.ID == "" {
				t.Errorf("option %q has no assigned id", opt.Text)
			}
		}
	}
}

func TestCreateQuiz_Validation(t *testing.T) {
	env := newQuizTestEnv(t)

	tests := []struct {
		name   string
		mutate func(*CreateQuizRequest)
	}{
		{"blank title", func(r *CreateQuizRequest) { r.Title = "" }},
		{"no questions", func(r *CreateQuizRequest) { r.Questions = nil }},
		{"blank question text", func(r *CreateQuizRequest) { r.Questions[0].Text = "   " }},
		{"single option", func(r *CreateQuizRequest) {
			r.Questions[0].Options = r.Questions[0].Options[:1]
		}},
		{"duplicate option ids", func(r *CreateQuizRequest) {
			r.Questions[0].Options[0].ID = "x"
			r.Questions[0].Options[1].ID = "x"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)

			_, err := env.service.Create(context.Background(), req, "instructor-1")
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Errorf("Create() error = %v, expected validation errors", err)
			}
		})
	}
}

func TestCreateQuiz_QuestionWithoutCorrectOptionAllowed(t *testing.T) {
	env := newQuizTestEnv(t)

	req := validCreateRequest()
	for i := range req.Questions[0].Options {
		req.Questions[0].Options[i].IsCorrect = false
	}

	// A survey style question is legal; it just never awards points
	if _, err := env.service.Create(context.Background(), req, "instructor-1"); err != nil {
		t.Errorf("Create() error = %v, expected a keyless question to be accepted", err)
	}
}

func TestUpdateSettings_GradingCascade(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	req := validCreateRequest()
	on := true
	penalty := 0.5
	req.Settings = &QuizSettingsRequest{NegativeMarking: &on, NegativeMarkingPoints: &penalty}

	resp, err := env.service.Create(ctx, req, "instructor-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Turning grading off drags negative marking down with it
	off := false
	settings, err := env.service.UpdateSettings(ctx, resp.ID, &QuizSettingsRequest{GradingEnabled: &off}, "instructor-1")
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if settings.GradingEnabled || settings.NegativeMarking {
		t.Errorf("after grading off: %+v, expected negative marking forced off", settings)
	}

	// Turning grading back on does not resurrect negative marking
	settings, err = env.service.UpdateSettings(ctx, resp.ID, &QuizSettingsRequest{GradingEnabled: &on}, "instructor-1")
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if !settings.GradingEnabled {
		t.Error("grading should be back on")
	}
	if settings.NegativeMarking {
		t.Error("negative marking must stay off until explicitly re-enabled")
	}
}

func TestUpdateSettings_NotOwner(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	resp, err := env.service.Create(ctx, validCreateRequest(), "instructor-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	off := false
	_, err = env.service.UpdateSettings(ctx, resp.ID, &QuizSettingsRequest{Active: &off}, "instructor-2")
	var perr *PermissionError
	if !errors.As(err, &perr) {
		t.Errorf("UpdateSettings() by non-owner error = %v, expected a permission error", err)
	}
}

func TestGetByIDWithDetails_StripsAnswerKey(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	req := validCreateRequest()
	explanation := "Paris has been the capital since 508."
	req.Questions[0].Explanation = &explanation

	created, err := env.service.Create(ctx, req, "instructor-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The owner sees the key
	ownerView, err := env.service.GetByIDWithDetails(ctx, created.ID, "instructor-1")
	if err != nil {
		t.Fatalf("GetByIDWithDetails() owner error = %v", err)
	}
	ownerOpts, err := ownerView.Questions[0].DecodeOptions()
	if err != nil {
		t.Fatalf("DecodeOptions() error = %v", err)
	}
	if models.CorrectOptionID(ownerOpts) == "" {
		t.Error("owner view lost the answer key")
	}

	// A student does not
	studentView, err := env.service.GetByIDWithDetails(ctx, created.ID, "student-1")
	if err != nil {
		t.Fatalf("GetByIDWithDetails() student error = %v", err)
	}
	for i := range studentView.Questions {
		q := &studentView.Questions[i]
		opts, err := q.DecodeOptions()
		if err != nil {
			t.Fatalf("DecodeOptions() error = %v", err)
		}
		if models.CorrectOptionID(opts) != "" {
			t.Error("student view leaked a correct option")
		}
		if q.Explanation != nil {
			t.Error("student view leaked an explanation")
		}
	}
}

func TestCanTake(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	resp, err := env.service.Create(ctx, validCreateRequest(), "instructor-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	quizID := resp.ID

	can, err := env.service.CanTake(ctx, quizID, "student-1")
	if err != nil || !can {
		t.Errorf("CanTake() = %v, %v; expected true on a fresh active quiz", can, err)
	}

	// Closed quiz
	env.repo.settings.store[quizID].Active = false
	if can, _ := env.service.CanTake(ctx, quizID, "student-1"); can {
		t.Error("CanTake() = true on a closed quiz")
	}
	env.repo.settings.store[quizID].Active = true

	// Finished attempt with retakes off
	env.repo.attempts.store[1] = &models.Attempt{
		ID: 1, QuizID: quizID, StudentID: "student-1", Status: models.AttemptCompleted,
	}
	env.repo.attempts.nextID = 1
	if can, _ := env.service.CanTake(ctx, quizID, "student-1"); can {
		t.Error("CanTake() = true after a finished attempt without retakes")
	}

	env.repo.settings.store[quizID].AllowRetakes = true
	if can, _ := env.service.CanTake(ctx, quizID, "student-1"); !can {
		t.Error("CanTake() = false with retakes enabled")
	}
}

func TestSetActive_PublishesLifecycleEvents(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	resp, err := env.service.Create(ctx, validCreateRequest(), "instructor-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := env.service.SetActive(ctx, resp.ID, false, "instructor-1"); err != nil {
		t.Fatalf("SetActive(false) error = %v", err)
	}
	if err := env.service.SetActive(ctx, resp.ID, true, "instructor-1"); err != nil {
		t.Fatalf("SetActive(true) error = %v", err)
	}

	published := env.publisher.GetPublishedEvents()
	if len(published) != 2 {
		t.Fatalf("%d events published, expected 2", len(published))
	}
	if published[0].Type != events.EventQuizClosed {
		t.Errorf("first event = %q, expected %q", published[0].Type, events.EventQuizClosed)
	}
	if published[1].Type != events.EventQuizPublished {
		t.Errorf("second event = %q, expected %q", published[1].Type, events.EventQuizPublished)
	}
}

func TestDeleteQuiz_Permissions(t *testing.T) {
	env := newQuizTestEnv(t)
	ctx := context.Background()

	env.repo.users.store["admin-1"] = &models.User{ID: "admin-1", Role: models.RoleAdmin}

	resp, err := env.service.Create(ctx, validCreateRequest(), "instructor-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var perr *PermissionError
	if err := env.service.Delete(ctx, resp.ID, "instructor-2"); !errors.As(err, &perr) {
		t.Errorf("Delete() by stranger error = %v, expected a permission error", err)
	}

	// Admins may delete any quiz
	if err := env.service.Delete(ctx, resp.ID, "admin-1"); err != nil {
		t.Errorf("Delete() by admin error = %v", err)
	}
	if _, err := env.service.GetByID(ctx, resp.ID, "instructor-1"); !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("GetByID() after delete error = %v, expected ErrQuizNotFound", err)
	}
}
