package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportQuizResults writes every finished attempt at a quiz into an xlsx
// workbook, one row per attempt, newest first.
func (s *exportService) ExportQuizResults(ctx context.Context, quizID uint, userID string) ([]byte, string, error) {
	s.logger.Info("Exporting quiz results", "quiz_id", quizID, "user_id", userID)

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrQuizNotFound
		}
		return nil, "", fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.InstructorID != userID {
		isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
		if err != nil || !isAdmin {
			return nil, "", NewPermissionError(userID, quizID, "quiz", "export", "not the quiz owner")
		}
	}

	attempts, _, err := s.repo.Attempt().GetByQuiz(ctx, nil, quizID, repositories.AttemptFilters{
		SortBy:    "completed_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get attempts: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student Name", "Student ID", "Email", "Status", "Score", "Total Questions", "Time Taken (s)", "Started At", "Completed At", "End Reason"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}

	row := 2
	for _, attempt := range attempts {
		if attempt.Status == models.AttemptInProgress {
			continue
		}

		endReason := ""
		if attempt.EndReason != nil {
			endReason = *attempt.EndReason
		}
		values := []interface{}{
			attempt.StudentName,
			attempt.StudentIDNumber,
			attempt.StudentEmail,
			string(attempt.Status),
			attempt.Score,
			attempt.TotalQuestions,
			attempt.TimeTaken,
			formatExportTime(attempt.StartedAt),
			formatExportTime(attempt.CompletedAt),
			endReason,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("quiz_%d_results_%s.xlsx", quizID, time.Now().Format("20060102_150405"))

	s.logger.Info("Quiz results exported",
		"quiz_id", quizID,
		"rows", row-2,
		"filename", filename)

	return buf.Bytes(), filename, nil
}

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
