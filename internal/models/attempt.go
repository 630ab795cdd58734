package models

import "time"

// Attempt states.
const (
	AttemptStateViewing  = "viewing"
	AttemptStateFinished = "finished"
)

// ExamAttempt tracks one learner's pass through an exam.
type ExamAttempt struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ExamID       uint       `gorm:"not null;index" json:"exam_id"`
	State        string     `gorm:"size:16;not null" json:"state"`
	CurrentIndex int        `gorm:"not null;default:0" json:"current_index"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	Exam         Exam       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsFinished reports whether the attempt has moved past its last question.
func (a ExamAttempt) IsFinished() bool {
	return a.State == AttemptStateFinished
}
