package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/models"
	"github.com/noah-isme/codesarge-api/internal/observability"
	"github.com/noah-isme/codesarge-api/internal/repository"
)

var (
	// ErrExamNotFound indicates the requested exam does not exist.
	ErrExamNotFound = errors.New("exam not found")
	// ErrExamTitleRequired indicates the exam title is blank once trimmed and sanitised.
	ErrExamTitleRequired = errors.New("exam title is required")
	// ErrExamCreationFailed indicates the exam could not be persisted; nothing was stored.
	ErrExamCreationFailed = errors.New("failed to create exam")
)

// ExamService exposes exam authoring and catalogue use cases.
type ExamService interface {
	Create(ctx context.Context, payload dto.ExamCreateRequest) (dto.ExamDetailResponse, error)
	List(ctx context.Context, filter dto.ExamFilter) (dto.ExamListResponse, error)
	Get(ctx context.Context, id uint) (dto.ExamDetailResponse, error)
	GetBySlug(ctx context.Context, slug string) (dto.ExamDetailResponse, error)
}

type examService struct {
	repo      repository.ExamRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	activity  ActivityRecorder
	events    EventPublisher
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewExamService constructs the exam service. activity and events may be nil.
func NewExamService(repo repository.ExamRepository, validate *validator.Validate, activity ActivityRecorder, events EventPublisher, logger zerolog.Logger) ExamService {
	return &examService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		activity:  activity,
		events:    events,
		logger:    logger.With().Str("component", "exam_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/codesarge-api/internal/service/exam"),
	}
}

func (s *examService) Create(ctx context.Context, payload dto.ExamCreateRequest) (dto.ExamDetailResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exam.create")
	defer span.End()

	payload = normaliseExamPayload(payload)
	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ExamDetailResponse{}, err
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	if title == "" {
		span.SetStatus(codes.Error, "title_required")
		return dto.ExamDetailResponse{}, ErrExamTitleRequired
	}

	exam := models.Exam{
		Title:       title,
		Slug:        examSlug(title),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
	}

	questions := make([]models.Question, 0, len(payload.Questions))
	for position, question := range payload.Questions {
		cases := make([]models.TestCase, 0, len(question.TestCases))
		for casePosition, tc := range question.TestCases {
			cases = append(cases, models.TestCase{
				Input:          tc.Input,
				ExpectedOutput: tc.ExpectedOutput,
				Order:          casePosition,
			})
		}

		questions = append(questions, models.Question{
			Title:       question.Title,
			Description: question.Description,
			Language:    question.Language,
			StarterCode: question.StarterCode,
			Order:       position,
			TestCases:   cases,
		})
	}

	span.SetAttributes(attribute.Int("exam.question_count", len(questions)))

	if err := s.repo.CreateWithQuestions(ctx, &exam, questions); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist_failed")
		s.logger.Error().Err(err).Str("title", exam.Title).Msg("exam creation rolled back")
		return dto.ExamDetailResponse{}, fmt.Errorf("%w: %v", ErrExamCreationFailed, err)
	}

	observability.ExamsCreated().Inc()
	span.SetAttributes(attribute.Int64("exam.id", int64(exam.ID)))

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Action:     dto.EventExamCreated,
		EntityType: "exam",
		EntityID:   &exam.ID,
		Metadata: map[string]interface{}{
			"title":     exam.Title,
			"slug":      exam.Slug,
			"questions": len(questions),
		},
	})

	if s.events != nil {
		s.events.Publish(ctx, dto.ResultEvent{Type: dto.EventExamCreated, ExamID: exam.ID})
	}

	return dto.NewExamDetailResponse(exam), nil
}

func (s *examService) List(ctx context.Context, filter dto.ExamFilter) (dto.ExamListResponse, error) {
	page, pageSize := normalisePage(filter.Page, filter.PageSize)

	exams, total, err := s.repo.List(ctx, repository.ExamQuery{
		Search: strings.TrimSpace(filter.Search),
		Offset: pageOffset(page, pageSize),
		Limit:  pageSize,
	})
	if err != nil {
		return dto.ExamListResponse{}, err
	}

	return dto.NewExamListResponse(exams, dto.NewPagination(page, pageSize, total)), nil
}

func (s *examService) Get(ctx context.Context, id uint) (dto.ExamDetailResponse, error) {
	exam, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamDetailResponse{}, ErrExamNotFound
		}
		return dto.ExamDetailResponse{}, err
	}

	return dto.NewExamDetailResponse(exam), nil
}

func (s *examService) GetBySlug(ctx context.Context, value string) (dto.ExamDetailResponse, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return dto.ExamDetailResponse{}, ErrExamNotFound
	}

	exam, err := s.repo.GetBySlug(ctx, value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamDetailResponse{}, ErrExamNotFound
		}
		return dto.ExamDetailResponse{}, err
	}

	return dto.NewExamDetailResponse(exam), nil
}

func normaliseExamPayload(payload dto.ExamCreateRequest) dto.ExamCreateRequest {
	payload.Title = strings.TrimSpace(payload.Title)
	questions := make([]dto.QuestionRequest, 0, len(payload.Questions))
	for _, question := range payload.Questions {
		question.Title = strings.TrimSpace(question.Title)
		question.Description = strings.TrimSpace(question.Description)
		question.Language = strings.ToLower(strings.TrimSpace(question.Language))
		questions = append(questions, question)
	}
	payload.Questions = questions
	return payload
}

func examSlug(title string) string {
	value := slug.Make(title)
	if value == "" {
		return "exam"
	}
	return value
}
