package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CriteriaEvaluation records the selected level for one rubric on one answer.
type CriteriaEvaluation struct {
	RubricID           uint   `json:"rubric_id"`
	SelectedLevelIndex int    `json:"selected_level_index"`
	Feedback           string `json:"feedback"`
}

// Answer is a student's response to one question, with per-rubric evaluations
// and the derived aggregate percentage.
type Answer struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	SubmissionID        uint           `gorm:"not null;index" json:"submission_id"`
	QuestionID          uint           `gorm:"not null;index" json:"question_id"`
	AnswerText          string         `gorm:"type:text" json:"answer_text"`
	CriteriaEvaluations datatypes.JSON `gorm:"type:json" json:"-"`
	PointsPercentage    float64        `json:"points_percentage"`
	Confidence          string         `gorm:"size:16" json:"confidence"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

const (
	// ConfidenceHigh marks an answer mapped with explicit numbering or verbatim text.
	ConfidenceHigh = "high"
	// ConfidenceMedium marks an answer mapped by keyword or semantic matching.
	ConfidenceMedium = "medium"
	// ConfidenceLow marks an answer mapped only by positional order.
	ConfidenceLow = "low"
)

// SetEvaluations serializes the evaluation list into the JSON storage column.
func (a *Answer) SetEvaluations(evaluations []CriteriaEvaluation) {
	data, err := json.Marshal(evaluations)
	if err != nil {
		a.CriteriaEvaluations = datatypes.JSON([]byte("[]"))
		return
	}
	a.CriteriaEvaluations = datatypes.JSON(data)
}

// EvaluationList deserializes the stored evaluations into a Go slice.
func (a Answer) EvaluationList() []CriteriaEvaluation {
	if len(a.CriteriaEvaluations) == 0 {
		return nil
	}

	var evaluations []CriteriaEvaluation
	if err := json.Unmarshal(a.CriteriaEvaluations, &evaluations); err != nil {
		return nil
	}

	return evaluations
}
