package dto

import (
	"time"

	"github.com/rubriq/rubriq-api/internal/models"
)

// QuestionCreateRequest describes the payload for adding a question to an assignment.
type QuestionCreateRequest struct {
	AssignmentID     uint    `json:"assignment_id" validate:"required"`
	QuestionText     string  `json:"question_text" validate:"required"`
	QuestionNumber   int     `json:"question_number" validate:"required,gt=0"`
	PointsPercentage float64 `json:"points_percentage" validate:"gte=0,lte=100"`
}

// QuestionUpdateRequest describes the payload for updating a question.
type QuestionUpdateRequest struct {
	QuestionText     *string  `json:"question_text" validate:"omitempty,min=1"`
	QuestionNumber   *int     `json:"question_number" validate:"omitempty,gt=0"`
	PointsPercentage *float64 `json:"points_percentage" validate:"omitempty,gte=0,lte=100"`
}

// QuestionExtractRequest carries pasted exam text for LLM question extraction.
type QuestionExtractRequest struct {
	Text string `json:"text"`
}

// QuestionResponse is the serialized representation returned to API clients.
type QuestionResponse struct {
	ID               uint      `json:"id"`
	AssignmentID     uint      `json:"assignment_id"`
	QuestionText     string    `json:"question_text"`
	QuestionNumber   int       `json:"question_number"`
	PointsPercentage float64   `json:"points_percentage"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewQuestionResponse converts a model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	return QuestionResponse{
		ID:               model.ID,
		AssignmentID:     model.AssignmentID,
		QuestionText:     model.QuestionText,
		QuestionNumber:   model.QuestionNumber,
		PointsPercentage: model.PointsPercentage,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewQuestionResponseSlice converts a slice of models into DTOs.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}
	return responses
}
