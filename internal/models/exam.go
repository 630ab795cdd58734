package models

import (
	"strings"
	"time"
)

// Exam is a named, ordered collection of coding questions.
type Exam struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex" json:"slug"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Questions   []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
}

// HasTitle reports whether the exam carries a non-blank title.
func (e Exam) HasTitle() bool {
	return strings.TrimSpace(e.Title) != ""
}
