package models

import "time"

// Settings is the single instructor-tunable configuration row. Exactly one
// record exists; it is created with defaults the first time it is requested.
type Settings struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	GradingPrompt    string    `gorm:"type:text" json:"grading_prompt"`
	ExtractionPrompt string    `gorm:"type:text" json:"extraction_prompt"`
	MappingPrompt    string    `gorm:"type:text" json:"mapping_prompt"`
	RubricPrompt     string    `gorm:"type:text" json:"rubric_prompt"`
	DefaultModel     string    `gorm:"size:128" json:"default_model"`
	VisionModel      string    `gorm:"size:128" json:"vision_model"`
	VisionExtraction bool      `json:"vision_extraction"`
	AutoMapping      bool      `json:"auto_mapping"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const (
	// DefaultGradingPrompt instructs suggestion agents how to apply rubric levels.
	DefaultGradingPrompt = "You are an experienced grader. For every rubric criterion, pick the level that best matches the student's answer and explain what the student did well and what they should improve."
	// DefaultExtractionPrompt instructs the model how to pull exam questions out of a document.
	DefaultExtractionPrompt = "Extract every exam question from the document in order. Preserve the original wording and numbering."
	// DefaultMappingPrompt instructs the model how to split free-form text into per-question answers.
	DefaultMappingPrompt = "Partition the submission text into one answer per question. Prefer explicit question numbering, then keyword matching, then positional order."
	// DefaultRubricPrompt instructs the model how to propose grading criteria.
	DefaultRubricPrompt = "Propose grading criteria for the question. Each criterion needs ordered performance levels with a name, a description, and a score percentage between 0 and 100."
	// DefaultModelName is used when an agent or request does not name a model.
	DefaultModelName = "gpt-4o-mini"
	// DefaultVisionModelName is used for OCR extraction from PDFs and images.
	DefaultVisionModelName = "gpt-4o"
)

// DefaultSettings returns the documented defaults used on first read.
func DefaultSettings() Settings {
	return Settings{
		GradingPrompt:    DefaultGradingPrompt,
		ExtractionPrompt: DefaultExtractionPrompt,
		MappingPrompt:    DefaultMappingPrompt,
		RubricPrompt:     DefaultRubricPrompt,
		DefaultModel:     DefaultModelName,
		VisionModel:      DefaultVisionModelName,
		VisionExtraction: true,
		AutoMapping:      true,
	}
}
