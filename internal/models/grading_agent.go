package models

import "time"

// GradingAgent is a named model configuration used to request evaluation suggestions.
type GradingAgent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index;uniqueIndex:idx_agent_question_name" json:"question_id"`
	Name       string    `gorm:"size:255;not null;uniqueIndex:idx_agent_question_name" json:"name"`
	Color      string    `gorm:"size:32" json:"color"`
	Model      string    `gorm:"size:128;not null" json:"model"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
