package dto

import (
	"time"

	"github.com/rubriq/rubriq-api/internal/models"
)

// CriteriaEvaluationPayload is one rubric-level selection with feedback text.
type CriteriaEvaluationPayload struct {
	RubricID           uint   `json:"rubric_id" validate:"required"`
	SelectedLevelIndex int    `json:"selected_level_index" validate:"gte=0"`
	Feedback           string `json:"feedback"`
}

// AnswerCreateRequest describes the payload for manually recording an answer.
type AnswerCreateRequest struct {
	SubmissionID uint   `json:"submission_id" validate:"required"`
	QuestionID   uint   `json:"question_id" validate:"required"`
	AnswerText   string `json:"answer_text"`
}

// AnswerUpdateRequest describes the payload for editing an answer's text.
type AnswerUpdateRequest struct {
	AnswerText *string `json:"answer_text"`
}

// AnswerGradeRequest replaces an answer's full evaluation set.
type AnswerGradeRequest struct {
	Evaluations []CriteriaEvaluationPayload `json:"evaluations" validate:"dive"`
}

// AnswerResponse is the serialized representation returned to API clients.
type AnswerResponse struct {
	ID               uint                        `json:"id"`
	SubmissionID     uint                        `json:"submission_id"`
	QuestionID       uint                        `json:"question_id"`
	AnswerText       string                      `json:"answer_text"`
	Evaluations      []CriteriaEvaluationPayload `json:"evaluations"`
	PointsPercentage float64                     `json:"points_percentage"`
	Confidence       string                      `json:"confidence,omitempty"`
	Graded           bool                        `json:"graded"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// NewAnswerResponse converts a model into a DTO. Graded reports whether every
// rubric of the question carries a selection.
func NewAnswerResponse(model models.Answer, graded bool) AnswerResponse {
	evaluations := model.EvaluationList()
	payload := make([]CriteriaEvaluationPayload, 0, len(evaluations))
	for _, evaluation := range evaluations {
		payload = append(payload, CriteriaEvaluationPayload{
			RubricID:           evaluation.RubricID,
			SelectedLevelIndex: evaluation.SelectedLevelIndex,
			Feedback:           evaluation.Feedback,
		})
	}

	return AnswerResponse{
		ID:               model.ID,
		SubmissionID:     model.SubmissionID,
		QuestionID:       model.QuestionID,
		AnswerText:       model.AnswerText,
		Evaluations:      payload,
		PointsPercentage: model.PointsPercentage,
		Confidence:       model.Confidence,
		Graded:           graded,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// ModelEvaluations converts request payloads into the model representation.
func ModelEvaluations(payload []CriteriaEvaluationPayload) []models.CriteriaEvaluation {
	converted := make([]models.CriteriaEvaluation, 0, len(payload))
	for _, evaluation := range payload {
		converted = append(converted, models.CriteriaEvaluation{
			RubricID:           evaluation.RubricID,
			SelectedLevelIndex: evaluation.SelectedLevelIndex,
			Feedback:           evaluation.Feedback,
		})
	}
	return converted
}
