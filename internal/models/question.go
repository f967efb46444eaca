package models

import "time"

// Question belongs to an assignment and carries a share of its total points.
type Question struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	AssignmentID     uint           `gorm:"not null;index" json:"assignment_id"`
	QuestionText     string         `gorm:"type:text;not null" json:"question_text"`
	QuestionNumber   int            `gorm:"not null" json:"question_number"`
	PointsPercentage float64        `gorm:"not null" json:"points_percentage"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Rubrics          []Rubric       `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Agents           []GradingAgent `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
