package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/models"
	"github.com/noah-isme/codesarge-api/internal/repository"
)

var (
	// ErrSubmissionNotFound indicates the submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrInvalidStatusFilter indicates an unknown submission status was requested.
	ErrInvalidStatusFilter = errors.New("invalid submission status filter")
)

// ResultsService exposes the grading dashboard's read side.
type ResultsService interface {
	List(ctx context.Context, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionDetailResponse, error)
	Export(ctx context.Context, examID uint) (ResultsExport, error)
}

type resultsService struct {
	submissions repository.SubmissionRepository
	exams       repository.ExamRepository
	logger      zerolog.Logger
}

// NewResultsService constructs the results service.
func NewResultsService(submissions repository.SubmissionRepository, exams repository.ExamRepository, logger zerolog.Logger) ResultsService {
	return &resultsService{
		submissions: submissions,
		exams:       exams,
		logger:      logger.With().Str("component", "results_service").Logger(),
	}
}

func (s *resultsService) List(ctx context.Context, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error) {
	page, pageSize := normalisePage(filter.Page, filter.PageSize)

	status := strings.ToLower(strings.TrimSpace(filter.Status))
	switch status {
	case "", models.SubmissionStatusSubmitted, models.SubmissionStatusPassed, models.SubmissionStatusFailed:
	default:
		return dto.SubmissionListResponse{}, ErrInvalidStatusFilter
	}

	query := repository.SubmissionQuery{
		Status: status,
		Offset: pageOffset(page, pageSize),
		Limit:  pageSize,
	}
	if filter.ExamID > 0 {
		examID := filter.ExamID
		query.ExamID = &examID
	}

	submissions, total, err := s.submissions.List(ctx, query)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	return dto.NewSubmissionListResponse(submissions, dto.NewPagination(page, pageSize, total)), nil
}

func (s *resultsService) Get(ctx context.Context, id uint) (dto.SubmissionDetailResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionDetailResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionDetailResponse{}, err
	}

	return dto.NewSubmissionDetailResponse(submission), nil
}
