package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/models"
)

// RubricRepository defines persistence operations for rubric criteria.
type RubricRepository interface {
	ListByQuestion(ctx context.Context, questionID uint) ([]models.Rubric, error)
	GetByID(ctx context.Context, id uint) (models.Rubric, error)
	Create(ctx context.Context, rubric *models.Rubric) error
	CreateBatch(ctx context.Context, rubrics []models.Rubric) error
	Update(ctx context.Context, rubric *models.Rubric) error
	Delete(ctx context.Context, id uint) error
}

type rubricRepository struct {
	db *gorm.DB
}

// NewRubricRepository instantiates a GORM-backed repository.
func NewRubricRepository(db *gorm.DB) RubricRepository {
	return &rubricRepository{db: db}
}

func (r *rubricRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.Rubric, error) {
	var rubrics []models.Rubric
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("id ASC").
		Find(&rubrics).Error
	if err != nil {
		return nil, err
	}

	return rubrics, nil
}

func (r *rubricRepository) GetByID(ctx context.Context, id uint) (models.Rubric, error) {
	var rubric models.Rubric
	if err := r.db.WithContext(ctx).First(&rubric, id).Error; err != nil {
		return models.Rubric{}, err
	}

	return rubric, nil
}

func (r *rubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	return r.db.WithContext(ctx).Create(rubric).Error
}

func (r *rubricRepository) CreateBatch(ctx context.Context, rubrics []models.Rubric) error {
	if len(rubrics) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rubrics).Error
}

func (r *rubricRepository) Update(ctx context.Context, rubric *models.Rubric) error {
	return r.db.WithContext(ctx).Save(rubric).Error
}

func (r *rubricRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Rubric{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
