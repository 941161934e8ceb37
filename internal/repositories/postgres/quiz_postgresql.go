package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/cache"
	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

type QuizPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (q *QuizPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuizPostgreSQL) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(quiz).Error; err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).Preload("Settings").First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("details:%d", id)
	var quiz models.Quiz

	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cacheKey, &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuiz models.Quiz
		if err := db.WithContext(ctx).
			Preload("Settings").
			Preload("Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order("questions.\"order\" ASC, questions.id ASC")
			}).
			First(&dbQuiz, id).Error; err != nil {
			return nil, err
		}
		return &dbQuiz, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}

	return &quiz, nil
}

func (q *QuizPostgreSQL) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(quiz).Error; err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	cache.InvalidateQuizCache(ctx, q.cacheManager, quiz.ID, quiz.InstructorID)
	return nil
}

func (q *QuizPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Delete(&quiz).Error; err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	cache.InvalidateQuizCache(ctx, q.cacheManager, id, quiz.InstructorID)
	return nil
}

func (q *QuizPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	db := q.getDB(tx)
	var quizzes []*models.Quiz
	var total int64

	query := db.WithContext(ctx).Model(&models.Quiz{})
	query = q.helpers.ApplyQuizFilters(query, filters)
	if filters.ActiveOnly {
		query = query.Joins("JOIN quiz_settings ON quiz_settings.quiz_id = quizzes.id").
			Where("quiz_settings.active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Settings").Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

func (q *QuizPostgreSQL) GetByInstructor(ctx context.Context, tx *gorm.DB, instructorID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	filters.InstructorID = &instructorID
	return q.List(ctx, tx, filters)
}

func (q *QuizPostgreSQL) GetActive(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	filters.ActiveOnly = true
	return q.List(ctx, tx, filters)
}

func (q *QuizPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := q.getDB(tx)
	var count int64
	err := db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (q *QuizPostgreSQL) IsOwner(ctx context.Context, tx *gorm.DB, id uint, instructorID string) (bool, error) {
	db := q.getDB(tx)
	var count int64
	err := db.WithContext(ctx).Model(&models.Quiz{}).
		Where("id = ? AND instructor_id = ?", id, instructorID).
		Count(&count).Error
	return count > 0, err
}

// ===== QUIZ SETTINGS =====

type QuizSettingsPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuizSettingsPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuizSettingsRepository {
	return &QuizSettingsPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (s *QuizSettingsPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *QuizSettingsPostgreSQL) Create(ctx context.Context, tx *gorm.DB, settings *models.QuizSettings) error {
	db := s.getDB(tx)
	return db.WithContext(ctx).Create(settings).Error
}

func (s *QuizSettingsPostgreSQL) GetByQuizID(ctx context.Context, tx *gorm.DB, quizID uint) (*models.QuizSettings, error) {
	db := s.getDB(tx)
	var settings models.QuizSettings
	if err := db.WithContext(ctx).Where("quiz_id = ?", quizID).First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *QuizSettingsPostgreSQL) Update(ctx context.Context, tx *gorm.DB, settings *models.QuizSettings) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Save(settings).Error; err != nil {
		return fmt.Errorf("failed to update quiz settings: %w", err)
	}
	cache.SafeDelete(ctx, s.cacheManager.Quiz, fmt.Sprintf("details:%d", settings.QuizID))
	return nil
}
