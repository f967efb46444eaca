package dto

import (
	"time"

	"github.com/rubriq/rubriq-api/internal/models"
)

// RubricLevelPayload describes one performance level in rubric requests and responses.
type RubricLevelPayload struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Percentage  float64 `json:"percentage" validate:"gte=0,lte=100"`
}

// RubricCreateRequest describes the payload for adding a rubric criterion to a question.
type RubricCreateRequest struct {
	QuestionID   uint                 `json:"question_id" validate:"required"`
	CriteriaName string               `json:"criteria_name" validate:"required"`
	Levels       []RubricLevelPayload `json:"levels" validate:"required,min=1,dive"`
}

// RubricUpdateRequest describes the payload for updating a rubric criterion.
type RubricUpdateRequest struct {
	CriteriaName *string              `json:"criteria_name" validate:"omitempty,min=1"`
	Levels       []RubricLevelPayload `json:"levels" validate:"omitempty,min=1,dive"`
}

// RubricResponse is the serialized representation returned to API clients.
type RubricResponse struct {
	ID           uint                 `json:"id"`
	QuestionID   uint                 `json:"question_id"`
	CriteriaName string               `json:"criteria_name"`
	Levels       []RubricLevelPayload `json:"levels"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewRubricResponse converts a model into a DTO.
func NewRubricResponse(model models.Rubric) RubricResponse {
	levels := model.LevelList()
	payload := make([]RubricLevelPayload, 0, len(levels))
	for _, level := range levels {
		payload = append(payload, RubricLevelPayload{
			Name:        level.Name,
			Description: level.Description,
			Percentage:  level.Percentage,
		})
	}

	return RubricResponse{
		ID:           model.ID,
		QuestionID:   model.QuestionID,
		CriteriaName: model.CriteriaName,
		Levels:       payload,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewRubricResponseSlice converts a slice of models into DTOs.
func NewRubricResponseSlice(rubrics []models.Rubric) []RubricResponse {
	responses := make([]RubricResponse, 0, len(rubrics))
	for _, rubric := range rubrics {
		responses = append(responses, NewRubricResponse(rubric))
	}
	return responses
}

// ModelLevels converts request level payloads into the model representation.
func ModelLevels(levels []RubricLevelPayload) []models.RubricLevel {
	converted := make([]models.RubricLevel, 0, len(levels))
	for _, level := range levels {
		converted = append(converted, models.RubricLevel{
			Name:        level.Name,
			Description: level.Description,
			Percentage:  level.Percentage,
		})
	}
	return converted
}
