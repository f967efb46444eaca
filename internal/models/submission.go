package models

import "time"

// Submission represents one student's submitted work for an assignment.
type Submission struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AssignmentID     uint      `gorm:"not null;index" json:"assignment_id"`
	StudentName      string    `gorm:"size:255;not null" json:"student_name"`
	StudentEmail     string    `gorm:"size:255" json:"student_email"`
	SourceFileName   string    `gorm:"size:512" json:"source_file_name"`
	ProcessingStatus string    `gorm:"size:32;not null" json:"processing_status"`
	SubmittedAt      time.Time `json:"submitted_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Answers          []Answer  `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

const (
	// SubmissionStatusPending indicates the submission has been recorded but not parsed.
	SubmissionStatusPending = "pending"
	// SubmissionStatusProcessing indicates extraction or mapping is in progress.
	SubmissionStatusProcessing = "processing"
	// SubmissionStatusCompleted indicates answers have been populated.
	SubmissionStatusCompleted = "completed"
	// SubmissionStatusFailed indicates extraction or mapping failed.
	SubmissionStatusFailed = "failed"
)
