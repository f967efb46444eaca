package dto

import (
	"time"

	"github.com/rubriq/rubriq-api/internal/models"
)

// BatchResponse reports server-side progress of a multi-file upload.
type BatchResponse struct {
	ID             uint      `json:"id"`
	AssignmentID   uint      `json:"assignment_id"`
	TotalFiles     int       `json:"total_files"`
	ProcessedFiles int       `json:"processed_files"`
	FailedFiles    int       `json:"failed_files"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewBatchResponse converts a model into a DTO.
func NewBatchResponse(model models.UploadBatch) BatchResponse {
	return BatchResponse{
		ID:             model.ID,
		AssignmentID:   model.AssignmentID,
		TotalFiles:     model.TotalFiles,
		ProcessedFiles: model.ProcessedFiles,
		FailedFiles:    model.FailedFiles,
		Status:         model.Status,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
