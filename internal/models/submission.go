package models

import "time"

const (
	// SubmissionStatusSubmitted indicates the code was saved but not graded.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusPassed indicates a grade at or above the passing score.
	SubmissionStatusPassed = "passed"
	// SubmissionStatusFailed indicates a grade below the passing score.
	SubmissionStatusFailed = "failed"
)

// Submission is a learner's code for one question within one exam attempt.
type Submission struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	ExamID     uint        `gorm:"not null;index" json:"exam_id"`
	QuestionID uint        `gorm:"not null;uniqueIndex:idx_submissions_attempt_question" json:"question_id"`
	AttemptID  uint        `gorm:"not null;uniqueIndex:idx_submissions_attempt_question" json:"attempt_id"`
	Code       string      `gorm:"type:text" json:"code"`
	Status     string      `gorm:"size:32;not null" json:"status"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Exam       Exam        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exam"`
	Question   Question    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
	Attempt    ExamAttempt `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Grade      *Grade      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grade"`
}

// IsGraded reports whether a grade is attached to the submission.
func (s Submission) IsGraded() bool {
	return s.Grade != nil && s.Grade.ID != 0
}
