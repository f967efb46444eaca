package ai

import (
	"context"
	"errors"
)

// ErrMalformedResponse indicates the model returned JSON that does not match
// the expected shape. Callers surface it as an upstream failure.
var ErrMalformedResponse = errors.New("malformed model response")

// ErrUnauthorized indicates the provider rejected the configured API key.
var ErrUnauthorized = errors.New("provider rejected credentials")

// RubricContext carries one rubric criterion and its ordered levels into a prompt.
type RubricContext struct {
	RubricID     uint
	CriteriaName string
	LevelNames   []string
	LevelDetails []string
}

// SiblingAnswer is another student's answer to the same question, included for
// calibration.
type SiblingAnswer struct {
	StudentName string
	AnswerText  string
}

// PriorSuggestion is an earlier suggestion the same agent made for another
// student, included for consistency.
type PriorSuggestion struct {
	StudentName  string
	CriteriaName string
	LevelName    string
	Feedback     string
}

// SubmissionContext is the student's full multi-question submission, included
// for holistic grading.
type SubmissionContext struct {
	QuestionText string
	AnswerText   string
}

// SuggestionInput assembles everything a grading agent needs to evaluate one answer.
type SuggestionInput struct {
	Model            string
	SystemPrompt     string
	QuestionText     string
	AnswerText       string
	Rubrics          []RubricContext
	SiblingAnswers   []SiblingAnswer
	PriorSuggestions []PriorSuggestion
	FullSubmission   []SubmissionContext
}

// Suggestion is one rubric-level recommendation produced by a grading agent.
type Suggestion struct {
	RubricID              uint   `json:"rubric_id"`
	SuggestedLevelIndex   int    `json:"suggested_level_index"`
	Justification         string `json:"justification"`
	ImprovementSuggestion string `json:"improvement_suggestion"`
}

// RubricGenerationInput asks the model to draft criteria for a question.
type RubricGenerationInput struct {
	Model        string
	SystemPrompt string
	QuestionText string
	TotalPoints  float64
}

// GeneratedRubric is one drafted criterion with its ordered levels.
type GeneratedRubric struct {
	CriteriaName string           `json:"criteria_name"`
	Levels       []GeneratedLevel `json:"levels"`
}

// GeneratedLevel is one drafted performance level.
type GeneratedLevel struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Percentage  float64 `json:"percentage"`
}

// ExtractionInput asks the model to pull exam questions out of document text.
type ExtractionInput struct {
	Model        string
	SystemPrompt string
	DocumentText string
}

// ExtractedQuestion is one question recovered from an exam document.
type ExtractedQuestion struct {
	QuestionNumber   int     `json:"question_number"`
	QuestionText     string  `json:"question_text"`
	PointsPercentage float64 `json:"points_percentage"`
}

// VisionInput asks a vision-capable model to transcribe a PDF or image.
type VisionInput struct {
	Model    string
	MIMEType string
	Data     []byte
}

// MappingInput asks the model to split free-form submission text into per-question answers.
type MappingInput struct {
	Model        string
	SystemPrompt string
	Text         string
	Questions    []string
}

// MappedAnswer is one per-question answer segment with a mapping confidence tag.
type MappedAnswer struct {
	QuestionIndex int    `json:"question_index"`
	AnswerText    string `json:"answer_text"`
	Confidence    string `json:"confidence"`
}

// Grader describes the model operations the grading workflows depend on.
type Grader interface {
	SuggestEvaluations(ctx context.Context, input SuggestionInput) ([]Suggestion, error)
	GenerateRubrics(ctx context.Context, input RubricGenerationInput) ([]GeneratedRubric, error)
	ExtractQuestions(ctx context.Context, input ExtractionInput) ([]ExtractedQuestion, error)
	ExtractText(ctx context.Context, input VisionInput) (string, error)
	MapAnswers(ctx context.Context, input MappingInput) ([]MappedAnswer, error)
}
