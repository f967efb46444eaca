package models

import "time"

// UploadBatch tracks server-side processing of a multi-file submission upload.
// Counters are advanced atomically as worker tasks finish.
type UploadBatch struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AssignmentID   uint      `gorm:"not null;index" json:"assignment_id"`
	TotalFiles     int       `gorm:"not null" json:"total_files"`
	ProcessedFiles int       `gorm:"not null" json:"processed_files"`
	FailedFiles    int       `gorm:"not null" json:"failed_files"`
	Status         string    `gorm:"size:32;not null" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	// BatchStatusRunning indicates tasks are still queued or in flight.
	BatchStatusRunning = "running"
	// BatchStatusCompleted indicates every file finished, possibly with failures.
	BatchStatusCompleted = "completed"
)

// IsFinished reports whether every file in the batch has been accounted for.
func (b UploadBatch) IsFinished() bool {
	return b.ProcessedFiles+b.FailedFiles >= b.TotalFiles
}
