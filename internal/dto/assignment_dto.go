package dto

import (
	"time"

	"github.com/rubriq/rubriq-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title       string  `json:"title" validate:"required,min=3"`
	Description string  `json:"description"`
	TotalPoints float64 `json:"total_points" validate:"required,gt=0"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3"`
	Description *string  `json:"description"`
	TotalPoints *float64 `json:"total_points" validate:"omitempty,gt=0"`
}

// AssignmentListRequest describes pagination & search parameters.
type AssignmentListRequest struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TotalPoints float64   `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Pagination captures list paging metadata.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination Pagination           `json:"pagination"`
	Search     string               `json:"search,omitempty"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		TotalPoints: model.TotalPoints,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}
	return responses
}
