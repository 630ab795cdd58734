package dto

import (
	"time"

	"github.com/noah-isme/codesarge-api/internal/models"
)

// TestCaseRequest is one input / expected output pair in an authoring payload.
type TestCaseRequest struct {
	Input          string `json:"input" validate:"max=10000"`
	ExpectedOutput string `json:"expected_output" validate:"max=10000"`
}

// QuestionRequest describes a question in an authoring payload.
type QuestionRequest struct {
	Title       string            `json:"title" validate:"required,max=255"`
	Description string            `json:"description" validate:"required"`
	Language    string            `json:"language" validate:"required,oneof=python javascript"`
	StarterCode string            `json:"starter_code"`
	TestCases   []TestCaseRequest `json:"test_cases" validate:"dive"`
}

// ExamCreateRequest is the payload accepted by the exam authoring workflow.
type ExamCreateRequest struct {
	Title       string            `json:"title" validate:"required,max=255"`
	Description string            `json:"description"`
	Questions   []QuestionRequest `json:"questions" validate:"dive"`
}

// ExamFilter defines query parameters for listing exams.
type ExamFilter struct {
	Search   string `query:"search"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// ExamSummaryResponse is the list representation of an exam.
type ExamSummaryResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExamListResponse wraps exams and pagination metadata.
type ExamListResponse struct {
	Items      []ExamSummaryResponse `json:"items"`
	Pagination Pagination            `json:"pagination"`
}

// TestCaseResponse exposes a test case to exam authors and graders.
type TestCaseResponse struct {
	ID             uint   `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Order          int    `json:"order"`
}

// QuestionResponse exposes a question with its ordered test cases.
type QuestionResponse struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Language    string             `json:"language"`
	StarterCode string             `json:"starter_code"`
	Order       int                `json:"order"`
	TestCases   []TestCaseResponse `json:"test_cases"`
}

// ExamDetailResponse extends ExamSummaryResponse with the ordered questions.
type ExamDetailResponse struct {
	ExamSummaryResponse
	Questions []QuestionResponse `json:"questions"`
}

// NewExamSummaryResponse builds a summary DTO from the model.
func NewExamSummaryResponse(exam models.Exam) ExamSummaryResponse {
	return ExamSummaryResponse{
		ID:          exam.ID,
		Title:       exam.Title,
		Slug:        exam.Slug,
		Description: exam.Description,
		CreatedAt:   exam.CreatedAt,
	}
}

// NewExamListResponse builds a list response from models and pagination meta.
func NewExamListResponse(exams []models.Exam, pagination Pagination) ExamListResponse {
	items := make([]ExamSummaryResponse, 0, len(exams))
	for _, exam := range exams {
		items = append(items, NewExamSummaryResponse(exam))
	}
	return ExamListResponse{Items: items, Pagination: pagination}
}

// NewQuestionResponse converts a question and its loaded test cases.
func NewQuestionResponse(question models.Question) QuestionResponse {
	cases := make([]TestCaseResponse, 0, len(question.TestCases))
	for _, tc := range question.TestCases {
		cases = append(cases, TestCaseResponse{
			ID:             tc.ID,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			Order:          tc.Order,
		})
	}

	return QuestionResponse{
		ID:          question.ID,
		Title:       question.Title,
		Description: question.Description,
		Language:    question.Language,
		StarterCode: question.StarterCode,
		Order:       question.Order,
		TestCases:   cases,
	}
}

// NewExamDetailResponse builds a detail DTO including questions.
func NewExamDetailResponse(exam models.Exam) ExamDetailResponse {
	questions := make([]QuestionResponse, 0, len(exam.Questions))
	for _, question := range exam.Questions {
		questions = append(questions, NewQuestionResponse(question))
	}

	return ExamDetailResponse{
		ExamSummaryResponse: NewExamSummaryResponse(exam),
		Questions:           questions,
	}
}
