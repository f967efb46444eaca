package dto

import (
	"time"

	"github.com/rubriq/rubriq-api/internal/models"
)

// AgentCreateRequest describes the payload for creating a grading agent.
type AgentCreateRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Color      string `json:"color"`
	Model      string `json:"model" validate:"required"`
}

// AgentUpdateRequest describes the payload for updating a grading agent.
type AgentUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Color *string `json:"color"`
	Model *string `json:"model" validate:"omitempty,min=1"`
}

// AgentSuggestRequest asks an agent to evaluate one answer, optionally with
// extra grading context.
type AgentSuggestRequest struct {
	AnswerID              uint `json:"answer_id" validate:"required"`
	IncludeSiblings       bool `json:"include_siblings"`
	IncludePriorFeedback  bool `json:"include_prior_feedback"`
	IncludeFullSubmission bool `json:"include_full_submission"`
}

// SuggestionPayload is one rubric-level recommendation returned to the client.
type SuggestionPayload struct {
	RubricID              uint   `json:"rubric_id"`
	SuggestedLevelIndex   int    `json:"suggested_level_index"`
	Justification         string `json:"justification"`
	ImprovementSuggestion string `json:"improvement_suggestion"`
}

// AgentSuggestResponse bundles an agent's suggestions for one answer.
type AgentSuggestResponse struct {
	AgentID     uint                `json:"agent_id"`
	AnswerID    uint                `json:"answer_id"`
	Suggestions []SuggestionPayload `json:"suggestions"`
}

// AgentResponse is the serialized representation returned to API clients.
type AgentResponse struct {
	ID         uint      `json:"id"`
	QuestionID uint      `json:"question_id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewAgentResponse converts a model into a DTO.
func NewAgentResponse(model models.GradingAgent) AgentResponse {
	return AgentResponse{
		ID:         model.ID,
		QuestionID: model.QuestionID,
		Name:       model.Name,
		Color:      model.Color,
		Model:      model.Model,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

// NewAgentResponseSlice converts a slice of models into DTOs.
func NewAgentResponseSlice(agents []models.GradingAgent) []AgentResponse {
	responses := make([]AgentResponse, 0, len(agents))
	for _, agent := range agents {
		responses = append(responses, NewAgentResponse(agent))
	}
	return responses
}
