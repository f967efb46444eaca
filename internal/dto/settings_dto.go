package dto

import (
	"time"

	"github.com/rubriq/rubriq-api/internal/models"
)

// SettingsUpdateRequest describes the payload for updating instructor settings.
// Absent fields keep their current values.
type SettingsUpdateRequest struct {
	GradingPrompt    *string `json:"grading_prompt"`
	ExtractionPrompt *string `json:"extraction_prompt"`
	MappingPrompt    *string `json:"mapping_prompt"`
	RubricPrompt     *string `json:"rubric_prompt"`
	DefaultModel     *string `json:"default_model" validate:"omitempty,min=1"`
	VisionModel      *string `json:"vision_model" validate:"omitempty,min=1"`
	VisionExtraction *bool   `json:"vision_extraction"`
	AutoMapping      *bool   `json:"auto_mapping"`
}

// SettingsResponse is the serialized representation returned to API clients.
type SettingsResponse struct {
	GradingPrompt    string    `json:"grading_prompt"`
	ExtractionPrompt string    `json:"extraction_prompt"`
	MappingPrompt    string    `json:"mapping_prompt"`
	RubricPrompt     string    `json:"rubric_prompt"`
	DefaultModel     string    `json:"default_model"`
	VisionModel      string    `json:"vision_model"`
	VisionExtraction bool      `json:"vision_extraction"`
	AutoMapping      bool      `json:"auto_mapping"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewSettingsResponse converts a model into a DTO.
func NewSettingsResponse(model models.Settings) SettingsResponse {
	return SettingsResponse{
		GradingPrompt:    model.GradingPrompt,
		ExtractionPrompt: model.ExtractionPrompt,
		MappingPrompt:    model.MappingPrompt,
		RubricPrompt:     model.RubricPrompt,
		DefaultModel:     model.DefaultModel,
		VisionModel:      model.VisionModel,
		VisionExtraction: model.VisionExtraction,
		AutoMapping:      model.AutoMapping,
		UpdatedAt:        model.UpdatedAt,
	}
}
