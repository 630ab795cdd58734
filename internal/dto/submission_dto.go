package dto

import (
	"bytes"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/noah-isme/codesarge-api/internal/models"
)

// SubmissionFilter defines query parameters for listing submissions.
type SubmissionFilter struct {
	ExamID   uint   `query:"exam_id"`
	Status   string `query:"status"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// GradeRequest is the grading form payload.
type GradeRequest struct {
	Score    ScoreInput `json:"score"`
	Feedback string     `json:"feedback" validate:"max=5000"`
}

var leadingInteger = regexp.MustCompile(`^\s*([+-]?\d+)`)

// ScoreInput accepts any JSON value for a grade and never fails to decode.
// Numbers are truncated toward zero, strings contribute their leading integer
// ("90", "85.5" -> 85) and everything else counts as 0. The result is
// clamped to the grade range.
type ScoreInput int

// UnmarshalJSON implements json.Unmarshaler.
func (s *ScoreInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var value float64
	switch {
	case len(data) == 0:
	case data[0] == '"':
		raw, err := strconv.Unquote(string(data))
		if err != nil {
			break
		}
		if match := leadingInteger.FindStringSubmatch(raw); match != nil {
			// Out of range prefixes come back as +/-Inf and clamp below.
			value, _ = strconv.ParseFloat(match[1], 64)
		}
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		parsed, err := strconv.ParseFloat(string(data), 64)
		if err == nil || math.IsInf(parsed, 0) {
			value = parsed
		}
	}

	*s = ScoreInput(clampScore(value))
	return nil
}

func clampScore(value float64) int {
	switch {
	case math.IsNaN(value):
		return models.MinScore
	case value <= models.MinScore:
		return models.MinScore
	case value >= models.MaxScore:
		return models.MaxScore
	}
	return int(math.Trunc(value))
}

// GradeResponse exposes a grade.
type GradeResponse struct {
	ID        uint      `json:"id"`
	Score     int       `json:"score"`
	Feedback  string    `json:"feedback"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmissionExamResponse is the exam excerpt joined onto a submission.
type SubmissionExamResponse struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// SubmissionQuestionResponse is the question excerpt joined onto a submission.
type SubmissionQuestionResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// SubmissionResponse is a submission joined with its exam, question and grade.
type SubmissionResponse struct {
	ID         uint                       `json:"id"`
	ExamID     uint                       `json:"exam_id"`
	QuestionID uint                       `json:"question_id"`
	AttemptID  uint                       `json:"attempt_id"`
	Code       string                     `json:"code"`
	Status     string                     `json:"status"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
	Exam       SubmissionExamResponse     `json:"exam"`
	Question   SubmissionQuestionResponse `json:"question"`
	Grade      *GradeResponse             `json:"grade"`
}

// SubmissionListResponse wraps submissions and pagination metadata.
type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

// TestCasePair is a test case shown to graders as plain text; nothing is executed.
type TestCasePair struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// SubmissionDetailResponse is the grading view of a single submission.
type SubmissionDetailResponse struct {
	SubmissionResponse
	TestCases []TestCasePair `json:"test_cases"`
}

// NewGradeResponse converts a grade model, returning nil when absent.
func NewGradeResponse(grade *models.Grade) *GradeResponse {
	if grade == nil || grade.ID == 0 {
		return nil
	}
	return &GradeResponse{
		ID:        grade.ID,
		Score:     grade.Score,
		Feedback:  grade.Feedback,
		UpdatedAt: grade.UpdatedAt,
	}
}

// NewSubmissionResponse builds a response DTO from a submission with preloaded relations.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:         submission.ID,
		ExamID:     submission.ExamID,
		QuestionID: submission.QuestionID,
		AttemptID:  submission.AttemptID,
		Code:       submission.Code,
		Status:     submission.Status,
		CreatedAt:  submission.CreatedAt,
		UpdatedAt:  submission.UpdatedAt,
		Exam: SubmissionExamResponse{
			ID:    submission.Exam.ID,
			Title: submission.Exam.Title,
		},
		Question: SubmissionQuestionResponse{
			ID:          submission.Question.ID,
			Title:       submission.Question.Title,
			Description: submission.Question.Description,
			Language:    submission.Question.Language,
		},
		Grade: NewGradeResponse(submission.Grade),
	}
}

// NewSubmissionListResponse builds a list response from models and pagination meta.
func NewSubmissionListResponse(submissions []models.Submission, pagination Pagination) SubmissionListResponse {
	items := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, NewSubmissionResponse(submission))
	}
	return SubmissionListResponse{Items: items, Pagination: pagination}
}

// NewSubmissionDetailResponse builds the grading view including test cases.
func NewSubmissionDetailResponse(submission models.Submission) SubmissionDetailResponse {
	pairs := make([]TestCasePair, 0, len(submission.Question.TestCases))
	for _, tc := range submission.Question.TestCases {
		pairs = append(pairs, TestCasePair{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput})
	}
	return SubmissionDetailResponse{
		SubmissionResponse: NewSubmissionResponse(submission),
		TestCases:          pairs,
	}
}
