package dto

import "github.com/noah-isme/codesarge-api/internal/models"

// AttemptCodeRequest carries the editor contents when navigating an attempt.
type AttemptCodeRequest struct {
	Code string `json:"code" validate:"max=200000"`
}

// QuestionView is the learner-facing view of a question; test contents stay hidden.
type QuestionView struct {
	ID            uint   `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	Order         int    `json:"order"`
	TestCaseCount int    `json:"test_case_count"`
}

// AttemptResponse reports the exam-taking state after an operation.
type AttemptResponse struct {
	ID             uint          `json:"id"`
	ExamID         uint          `json:"exam_id"`
	State          string        `json:"state"`
	CurrentIndex   int           `json:"current_index"`
	TotalQuestions int           `json:"total_questions"`
	IsLast         bool          `json:"is_last"`
	Question       *QuestionView `json:"question,omitempty"`
	Code           string        `json:"code"`
	ResultsURL     string        `json:"results_url,omitempty"`
}

// TestRunResponse is the outcome of a simulated test run.
type TestRunResponse struct {
	AttemptID  uint   `json:"attempt_id"`
	QuestionID uint   `json:"question_id"`
	Total      int    `json:"total"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	AllPassed  bool   `json:"all_passed"`
	Output     string `json:"output"`
	Simulated  bool   `json:"simulated"`
}

// NewQuestionView builds the learner view of a question.
func NewQuestionView(question models.Question) QuestionView {
	return QuestionView{
		ID:            question.ID,
		Title:         question.Title,
		Description:   question.Description,
		Language:      question.Language,
		Order:         question.Order,
		TestCaseCount: len(question.TestCases),
	}
}
