package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/cache"
	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	db := a.getDB(tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	cache.InvalidateQuizStats(ctx, a.cacheManager, attempt.QuizID)
	return nil
}

func (a *AttemptPostgreSQL) GetByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) ([]*models.Attempt, error) {
	db := a.getDB(tx)
	var attempts []*models.Attempt
	if err := db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("created_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempts by quiz and student: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.Attempt, error) {
	db := a.getDB(tx)
	var attempt models.Attempt
	err := db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, models.AttemptInProgress).
		Order("created_at DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.Attempt
	var total int64

	query := db.WithContext(ctx).Model(&models.Attempt{}).Where("quiz_id = ?", quizID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.Attempt
	var total int64

	filters.StudentID = &studentID
	query := db.WithContext(ctx).Model(&models.Attempt{})
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) HasCompletedAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (bool, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("quiz_id = ? AND student_id = ? AND status IN ?", quizID, studentID,
			[]models.AttemptStatus{models.AttemptCompleted, models.AttemptTimeOut}).
		Count(&count).Error
	return count > 0, err
}

func (a *AttemptPostgreSQL) HasActiveAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (bool, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, models.AttemptInProgress).
		Count(&count).Error
	return count > 0, err
}

func (a *AttemptPostgreSQL) GetExpiredInProgress(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.Attempt, error) {
	db := a.getDB(tx)
	var attempts []*models.Attempt
	query := db.WithContext(ctx).
		Where("status = ? AND deadline_at IS NOT NULL AND deadline_at <= ?", models.AttemptInProgress, now).
		Order("deadline_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to get expired attempts: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) GetQuizAggregate(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.QuizAggregate, error) {
	db := a.getDB(tx)
	cacheKey := fmt.Sprintf("quiz:%d:aggregate", quizID)
	var aggregate repositories.QuizAggregate

	err := a.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &aggregate, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var result repositories.QuizAggregate

		var total int64
		if err := db.WithContext(ctx).Model(&models.Attempt{}).
			Where("quiz_id = ?", quizID).
			Count(&total).Error; err != nil {
			return nil, err
		}
		result.TotalAttempts = int(total)

		type row struct {
			Status models.AttemptStatus
			Count  int64
		}
		var rows []row
		if err := db.WithContext(ctx).Model(&models.Attempt{}).
			Select("status, COUNT(*) as count").
			Where("quiz_id = ?", quizID).
			Group("status").
			Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			switch r.Status {
			case models.AttemptCompleted:
				result.CompletedAttempts = int(r.Count)
			case models.AttemptTimeOut:
				result.TimedOutAttempts = int(r.Count)
			}
		}

		type scoreRow struct {
			Avg     float64
			Max     float64
			Min     float64
			AvgTime float64
		}
		var scores scoreRow
		if err := db.WithContext(ctx).Model(&models.Attempt{}).
			Select("COALESCE(AVG(score), 0) as avg, COALESCE(MAX(score), 0) as max, COALESCE(MIN(score), 0) as min, COALESCE(AVG(time_taken), 0) as avg_time").
			Where("quiz_id = ? AND status IN ?", quizID,
				[]models.AttemptStatus{models.AttemptCompleted, models.AttemptTimeOut}).
			Scan(&scores).Error; err != nil {
			return nil, err
		}
		result.AverageScore = scores.Avg
		result.HighestScore = scores.Max
		result.LowestScore = scores.Min
		result.AverageTimeSpent = int(scores.AvgTime)

		return &result, nil
	})

	return &aggregate, err
}
