package dto

import "time"

// Event types published on the results feed.
const (
	EventExamCreated     = "exam.created"
	EventSubmissionSaved = "submission.saved"
	EventAttemptFinished = "attempt.finished"
	EventGradeSaved      = "grade.saved"
)

// ResultEvent is pushed to results feed subscribers and peer nodes.
type ResultEvent struct {
	Type         string    `json:"type"`
	ExamID       uint      `json:"exam_id"`
	AttemptID    uint      `json:"attempt_id,omitempty"`
	QuestionID   uint      `json:"question_id,omitempty"`
	SubmissionID uint      `json:"submission_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	Score        *int      `json:"score,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventFeedSubscribed is the first frame sent on a results feed connection.
const EventFeedSubscribed = "feed.subscribed"
