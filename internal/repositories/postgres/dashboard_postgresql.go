package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/cache"
	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

type DashboardPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDashboardPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.DashboardRepository {
	return &DashboardPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (d *DashboardPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return d.db
}

func (d *DashboardPostgreSQL) GetInstructorStats(ctx context.Context, tx *gorm.DB, instructorID string) (*repositories.InstructorStats, error) {
	db := d.getDB(tx)
	cacheKey := fmt.Sprintf("instructor:%s", instructorID)
	var stats repositories.InstructorStats

	err := d.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var result repositories.InstructorStats

		var totalQuizzes int64
		if err := db.WithContext(ctx).Model(&models.Quiz{}).
			Where("instructor_id = ?", instructorID).
			Count(&totalQuizzes).Error; err != nil {
			return nil, err
		}
		result.TotalQuizzes = int(totalQuizzes)

		var activeQuizzes int64
		if err := db.WithContext(ctx).Model(&models.Quiz{}).
			Joins("JOIN quiz_settings ON quiz_settings.quiz_id = quizzes.id").
			Where("quizzes.instructor_id = ? AND quiz_settings.active = ?", instructorID, true).
			Count(&activeQuizzes).Error; err != nil {
			return nil, err
		}
		result.ActiveQuizzes = int(activeQuizzes)

		var totalAttempts int64
		if err := db.WithContext(ctx).Model(&models.Attempt{}).
			Joins("JOIN quizzes ON quizzes.id = attempts.quiz_id").
			Where("quizzes.instructor_id = ?", instructorID).
			Count(&totalAttempts).Error; err != nil {
			return nil, err
		}
		result.TotalAttempts = int(totalAttempts)

		return &result, nil
	})

	return &stats, err
}

func (d *DashboardPostgreSQL) GetScoreDistribution(ctx context.Context, tx *gorm.DB, quizID uint, bucketSize float64) ([]repositories.ScoreDistributionData, error) {
	db := d.getDB(tx)
	if bucketSize <= 0 {
		bucketSize = 1
	}

	var rows []repositories.ScoreDistributionData
	err := db.WithContext(ctx).Model(&models.Attempt{}).
		Select("FLOOR(score / ?) * ? as bucket, COUNT(*) as count", bucketSize, bucketSize).
		Where("quiz_id = ? AND status IN ?", quizID,
			[]models.AttemptStatus{models.AttemptCompleted, models.AttemptTimeOut}).
		Group("bucket").
		Order("bucket ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get score distribution: %w", err)
	}
	return rows, nil
}

func (d *DashboardPostgreSQL) GetRecentAttempts(ctx context.Context, tx *gorm.DB, quizID uint, limit int) ([]repositories.RecentAttemptData, error) {
	db := d.getDB(tx)
	if limit <= 0 {
		limit = 10
	}

	var rows []repositories.RecentAttemptData
	err := db.WithContext(ctx).Model(&models.Attempt{}).
		Select("id, student_id, student_name, student_id_number, score, total_questions, time_taken, completed_at").
		Where("quiz_id = ? AND status IN ?", quizID,
			[]models.AttemptStatus{models.AttemptCompleted, models.AttemptTimeOut}).
		Order("completed_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent attempts: %w", err)
	}
	return rows, nil
}

// GetAnswerCounts tallies how many students picked each option, per question,
// across all finished attempts of a quiz. Answers are stored as a jsonb map of
// question ID to option ID, so the per-attempt maps are decoded here rather
// than unpacked in SQL.
func (d *DashboardPostgreSQL) GetAnswerCounts(ctx context.Context, tx *gorm.DB, quizID uint) (map[uint]map[string]int, error) {
	db := d.getDB(tx)

	var raws []json.RawMessage
	err := db.WithContext(ctx).Model(&models.Attempt{}).
		Where("quiz_id = ? AND status IN ?", quizID,
			[]models.AttemptStatus{models.AttemptCompleted, models.AttemptTimeOut}).
		Pluck("answers", &raws).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get answer counts: %w", err)
	}

	counts := make(map[uint]map[string]int)
	for _, raw := range raws {
		if len(raw) == 0 {
			continue
		}
		var answers map[uint]string
		if err := json.Unmarshal(raw, &answers); err != nil {
			continue
		}
		for questionID, optionID := range answers {
			if counts[questionID] == nil {
				counts[questionID] = make(map[string]int)
			}
			counts[questionID][optionID]++
		}
	}
	return counts, nil
}
