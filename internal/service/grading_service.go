package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
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

// DefaultPassingScore is used when no passing score is configured.
const DefaultPassingScore = 60

// GradingService records grades against submissions.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error)
}

type gradingService struct {
	submissions  repository.SubmissionRepository
	grades       repository.GradeRepository
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	passingScore int
	activity     ActivityRecorder
	events       EventPublisher
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewGradingService constructs the grading service. activity and events may be nil.
func NewGradingService(submissions repository.SubmissionRepository, grades repository.GradeRepository, validate *validator.Validate, passingScore int, activity ActivityRecorder, events EventPublisher, logger zerolog.Logger) GradingService {
	if passingScore < models.MinScore || passingScore > models.MaxScore {
		passingScore = DefaultPassingScore
	}

	return &gradingService{
		submissions:  submissions,
		grades:       grades,
		validator:    validate,
		sanitizer:    bluemonday.StrictPolicy(),
		passingScore: passingScore,
		activity:     activity,
		events:       events,
		logger:       logger.With().Str("component", "grading_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/codesarge-api/internal/service/grading"),
	}
}

// Grade clamps the score into range, then updates the submission's grade if
// one exists or creates it otherwise. Concurrent graders race last-write-wins.
func (s *gradingService) Grade(ctx context.Context, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.save")
	defer span.End()
	span.SetAttributes(attribute.Int64("grading.submission_id", int64(submissionID)))

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	score := models.ClampScore(int(payload.Score))
	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))

	status := models.SubmissionStatusFailed
	if score >= s.passingScore {
		status = models.SubmissionStatusPassed
	}

	grade := models.Grade{SubmissionID: submission.ID, Score: score, Feedback: feedback}
	created, err := s.grades.SaveWithStatus(ctx, &grade, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_persist_failed")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	operation := "update"
	if created {
		operation = "create"
	}

	submission.Status = status
	submission.Grade = &grade

	observability.GradesSaved().WithLabelValues(status, operation).Inc()
	span.SetAttributes(
		attribute.Int("grading.score", score),
		attribute.String("grading.status", status),
		attribute.String("grading.operation", operation),
	)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Action:     dto.EventGradeSaved,
		EntityType: "submission",
		EntityID:   &submission.ID,
		Metadata: map[string]interface{}{
			"exam_id":   submission.ExamID,
			"score":     score,
			"status":    status,
			"operation": operation,
		},
	})

	if s.events != nil {
		s.events.Publish(ctx, dto.ResultEvent{
			Type:         dto.EventGradeSaved,
			ExamID:       submission.ExamID,
			AttemptID:    submission.AttemptID,
			QuestionID:   submission.QuestionID,
			SubmissionID: submission.ID,
			Status:       status,
			Score:        &score,
		})
	}

	return dto.NewSubmissionResponse(submission), nil
}
