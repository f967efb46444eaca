package dto

import (
	"time"

	"github.com/rubriq/rubriq-api/internal/models"
)

// SubmissionCreateRequest describes the payload for manually recording a submission.
type SubmissionCreateRequest struct {
	AssignmentID uint   `json:"assignment_id" validate:"required"`
	StudentName  string `json:"student_name" validate:"required"`
	StudentEmail string `json:"student_email" validate:"omitempty,email"`
}

// SubmissionUpdateRequest describes the payload for updating a submission.
type SubmissionUpdateRequest struct {
	StudentName  *string `json:"student_name" validate:"omitempty,min=1"`
	StudentEmail *string `json:"student_email" validate:"omitempty,email"`
}

// SubmissionParseRequest carries pasted text for submission parsing. File
// uploads use the multipart form instead.
type SubmissionParseRequest struct {
	StudentName  string `json:"student_name" validate:"required"`
	StudentEmail string `json:"student_email" validate:"omitempty,email"`
	Text         string `json:"text"`
}

// SubmissionResponse is the serialized representation returned to API clients.
type SubmissionResponse struct {
	ID               uint      `json:"id"`
	AssignmentID     uint      `json:"assignment_id"`
	StudentName      string    `json:"student_name"`
	StudentEmail     string    `json:"student_email"`
	SourceFileName   string    `json:"source_file_name,omitempty"`
	ProcessingStatus string    `json:"processing_status"`
	SubmittedAt      time.Time `json:"submitted_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SubmissionWithAnswersResponse bundles a submission with its parsed answers.
type SubmissionWithAnswersResponse struct {
	Submission SubmissionResponse `json:"submission"`
	Answers    []AnswerResponse   `json:"answers"`
}

// NewSubmissionResponse converts a model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:               model.ID,
		AssignmentID:     model.AssignmentID,
		StudentName:      model.StudentName,
		StudentEmail:     model.StudentEmail,
		SourceFileName:   model.SourceFileName,
		ProcessingStatus: model.ProcessingStatus,
		SubmittedAt:      model.SubmittedAt,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
