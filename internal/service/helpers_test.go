package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/models"
	"github.com/noah-isme/codesarge-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Exam{},
		&models.Question{},
		&models.TestCase{},
		&models.ExamAttempt{},
		&models.Submission{},
		&models.Grade{},
		&models.ActivityLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

type stubActivityRecorder struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *stubActivityRecorder) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return dto.ActivityResponse{Action: entry.Action, EntityType: entry.EntityType, EntityID: entry.EntityID}, nil
}

func (s *stubActivityRecorder) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.ResultEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event dto.ResultEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

func sampleExamRequest(questionCount int) dto.ExamCreateRequest {
	questions := make([]dto.QuestionRequest, 0, questionCount)
	for i := 0; i < questionCount; i++ {
		questions = append(questions, dto.QuestionRequest{
			Title:       fmt.Sprintf("Question %d", i+1),
			Description: "Return the reversed string",
			Language:    "python",
			StarterCode: fmt.Sprintf("def q%d(s):\n    pass", i+1),
			TestCases: []dto.TestCaseRequest{
				{Input: "abc", ExpectedOutput: "cba"},
				{Input: "hello", ExpectedOutput: "olleh"},
				{Input: "", ExpectedOutput: ""},
			},
		})
	}

	return dto.ExamCreateRequest{
		Title:       "String Basics",
		Description: "Warm-up exercises",
		Questions:   questions,
	}
}

func createSampleExam(t *testing.T, db *gorm.DB, questionCount int) dto.ExamDetailResponse {
	t.Helper()

	svc := NewExamService(repository.NewExamRepository(db), testValidator(), nil, nil, testLogger())
	exam, err := svc.Create(context.Background(), sampleExamRequest(questionCount))
	require.NoError(t, err)
	return exam
}
