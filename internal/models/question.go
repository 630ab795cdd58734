package models

import "time"

// Supported question languages.
const (
	LanguagePython     = "python"
	LanguageJavaScript = "javascript"
)

// Question is a single coding prompt within an exam.
type Question struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ExamID      uint       `gorm:"not null;uniqueIndex:idx_questions_exam_position" json:"exam_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Language    string     `gorm:"size:32;not null" json:"language"`
	StarterCode string     `gorm:"type:text" json:"starter_code"`
	Order       int        `gorm:"column:position;not null;uniqueIndex:idx_questions_exam_position" json:"order"`
	CreatedAt   time.Time  `json:"created_at"`
	TestCases   []TestCase `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_cases,omitempty"`
}

// TestCase is an input / expected output pair attached to a question.
type TestCase struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	QuestionID     uint      `gorm:"not null;uniqueIndex:idx_test_cases_question_position" json:"question_id"`
	Input          string    `gorm:"type:text" json:"input"`
	ExpectedOutput string    `gorm:"type:text" json:"expected_output"`
	Order          int       `gorm:"column:position;not null;uniqueIndex:idx_test_cases_question_position" json:"order"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsSupportedLanguage reports whether the language tag is accepted for questions.
func IsSupportedLanguage(language string) bool {
	return language == LanguagePython || language == LanguageJavaScript
}
