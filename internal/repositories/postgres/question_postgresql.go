package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	return db.WithContext(ctx).Create(question).Error
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	return db.WithContext(ctx).Save(question).Error
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)
	return db.WithContext(ctx).Delete(&models.Question{}, id).Error
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	db := q.getDB(tx)
	return db.WithContext(ctx).Create(&questions).Error
}

// ReplaceForQuiz swaps the whole question list of a quiz. The editor saves
// the canonical list as one unit, so partial diffs are not worth the
// bookkeeping here.
func (q *QuestionPostgreSQL) ReplaceForQuiz(ctx context.Context, tx *gorm.DB, quizID uint, questions []*models.Question) error {
	db := q.getDB(tx)

	if err := db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to clear quiz questions: %w", err)
	}

	for i, question := range questions {
		question.QuizID = quizID
		question.Order = i
	}

	return q.CreateBatch(ctx, tx, questions)
}

func (q *QuestionPostgreSQL) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("\"order\" ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) CountByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error) {
	db := q.getDB(tx)
	var count int64
	err := db.WithContext(ctx).Model(&models.Question{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}
