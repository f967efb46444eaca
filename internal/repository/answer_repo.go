package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/models"
)

// AnswerRepository defines persistence operations for answers.
type AnswerRepository interface {
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Answer, error)
	ListByQuestion(ctx context.Context, questionID uint) ([]models.Answer, error)
	GetByID(ctx context.Context, id uint) (models.Answer, error)
	Create(ctx context.Context, answer *models.Answer) error
	CreateBatch(ctx context.Context, answers []models.Answer) error
	Update(ctx context.Context, answer *models.Answer) error
	Delete(ctx context.Context, id uint) error
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository instantiates a GORM-backed repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("question_id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}

	return answers, nil
}

func (r *answerRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}

	return answers, nil
}

func (r *answerRepository) GetByID(ctx context.Context, id uint) (models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return models.Answer{}, err
	}

	return answer, nil
}

func (r *answerRepository) Create(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Create(answer).Error
}

func (r *answerRepository) CreateBatch(ctx context.Context, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&answers).Error
}

func (r *answerRepository) Update(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Save(answer).Error
}

func (r *answerRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Answer{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
