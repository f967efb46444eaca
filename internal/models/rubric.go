package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// RubricLevel is one performance tier of a rubric criterion.
type RubricLevel struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Percentage  float64 `json:"percentage"`
}

// Rubric is a grading criterion with an ordered list of performance levels.
type Rubric struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	QuestionID   uint           `gorm:"not null;index" json:"question_id"`
	CriteriaName string         `gorm:"size:255;not null" json:"criteria_name"`
	Levels       datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SetLevels serializes the ordered level list into the JSON storage column.
func (r *Rubric) SetLevels(levels []RubricLevel) {
	data, err := json.Marshal(levels)
	if err != nil {
		r.Levels = datatypes.JSON([]byte("[]"))
		return
	}
	r.Levels = datatypes.JSON(data)
}

// LevelList deserializes the stored levels into a Go slice.
func (r Rubric) LevelList() []RubricLevel {
	if len(r.Levels) == 0 {
		return nil
	}

	var levels []RubricLevel
	if err := json.Unmarshal(r.Levels, &levels); err != nil {
		return nil
	}

	return levels
}
