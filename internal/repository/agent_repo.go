package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/models"
)

// AgentRepository defines persistence operations for grading agents.
type AgentRepository interface {
	ListByQuestion(ctx context.Context, questionID uint) ([]models.GradingAgent, error)
	GetByID(ctx context.Context, id uint) (models.GradingAgent, error)
	Create(ctx context.Context, agent *models.GradingAgent) error
	Update(ctx context.Context, agent *models.GradingAgent) error
	Delete(ctx context.Context, id uint) error
}

type agentRepository struct {
	db *gorm.DB
}

// NewAgentRepository instantiates a GORM-backed repository.
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.GradingAgent, error) {
	var agents []models.GradingAgent
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("name ASC").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}

	return agents, nil
}

func (r *agentRepository) GetByID(ctx context.Context, id uint) (models.GradingAgent, error) {
	var agent models.GradingAgent
	if err := r.db.WithContext(ctx).First(&agent, id).Error; err != nil {
		return models.GradingAgent{}, err
	}

	return agent, nil
}

func (r *agentRepository) Create(ctx context.Context, agent *models.GradingAgent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

func (r *agentRepository) Update(ctx context.Context, agent *models.GradingAgent) error {
	return r.db.WithContext(ctx).Save(agent).Error
}

func (r *agentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.GradingAgent{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
