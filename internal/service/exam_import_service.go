package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/observability"
)

var (
	// ErrImportInvalid indicates the document is not a valid exam definition.
	ErrImportInvalid = errors.New("invalid exam import document")
	// ErrImportTooLarge indicates the file exceeded the configured limit.
	ErrImportTooLarge = errors.New("import file exceeds maximum allowed size")
	// ErrImportTypeNotAllowed indicates the detected file type is not JSON.
	ErrImportTypeNotAllowed = errors.New("import file type not allowed")
)

const examImportSchemaURL = "exam_import.schema.json"

//go:embed schemas/exam_import.schema.json
var examImportSchema []byte

// ExamImportService creates exams from uploaded JSON documents.
type ExamImportService interface {
	Import(ctx context.Context, file *multipart.FileHeader) (dto.ExamDetailResponse, error)
}

type examImportService struct {
	exams   ExamService
	schema  *jsonschema.Schema
	maxSize int64
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewExamImportService compiles the embedded import schema and builds the service.
func NewExamImportService(exams ExamService, maxSizeBytes int64, logger zerolog.Logger) (ExamImportService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(examImportSchemaURL, bytes.NewReader(examImportSchema)); err != nil {
		return nil, fmt.Errorf("load import schema: %w", err)
	}
	schema, err := compiler.Compile(examImportSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile import schema: %w", err)
	}

	if maxSizeBytes <= 0 {
		maxSizeBytes = 512 * 1024
	}

	return &examImportService{
		exams:   exams,
		schema:  schema,
		maxSize: maxSizeBytes,
		logger:  logger.With().Str("component", "exam_import_service").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/codesarge-api/internal/service/exam_import"),
	}, nil
}

func (s *examImportService) Import(ctx context.Context, file *multipart.FileHeader) (dto.ExamDetailResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exam.import")
	defer span.End()

	span.SetAttributes(attribute.Int64("import.max_bytes", s.maxSize))

	payload, err := s.read(file)
	if err != nil {
		s.reject(span, err)
		return dto.ExamDetailResponse{}, err
	}

	detected := mimetype.Detect(payload)
	span.SetAttributes(attribute.String("import.detected_mime", detected.String()))
	if !isAllowedImportType(detected) {
		s.reject(span, ErrImportTypeNotAllowed)
		return dto.ExamDetailResponse{}, ErrImportTypeNotAllowed
	}

	var document interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		err = fmt.Errorf("%w: %v", ErrImportInvalid, err)
		s.reject(span, err)
		return dto.ExamDetailResponse{}, err
	}

	if err := s.schema.Validate(document); err != nil {
		err = fmt.Errorf("%w: %v", ErrImportInvalid, err)
		s.reject(span, err)
		return dto.ExamDetailResponse{}, err
	}

	var request dto.ExamCreateRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		err = fmt.Errorf("%w: %v", ErrImportInvalid, err)
		s.reject(span, err)
		return dto.ExamDetailResponse{}, err
	}

	exam, err := s.exams.Create(ctx, request)
	if err != nil {
		s.reject(span, err)
		return dto.ExamDetailResponse{}, err
	}

	observability.ExamImports().WithLabelValues("accepted").Inc()
	span.SetStatus(codes.Ok, "imported")
	s.logger.Info().Uint("exam_id", exam.ID).Int("questions", len(exam.Questions)).Msg("exam imported")

	return exam, nil
}

func (s *examImportService) read(file *multipart.FileHeader) ([]byte, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: file is required", ErrImportInvalid)
	}
	if file.Size > s.maxSize {
		return nil, ErrImportTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > s.maxSize {
		return nil, ErrImportTooLarge
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrImportInvalid)
	}

	return buf.Bytes(), nil
}

func (s *examImportService) reject(span trace.Span, err error) {
	reason := "invalid"
	switch {
	case errors.Is(err, ErrImportTooLarge):
		reason = "size"
	case errors.Is(err, ErrImportTypeNotAllowed):
		reason = "type"
	case errors.Is(err, ErrExamCreationFailed):
		reason = "persist"
	}

	observability.ExamImports().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
}

func isAllowedImportType(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		value := strings.ToLower(m.String())
		if strings.HasPrefix(value, "application/json") || strings.HasPrefix(value, "text/plain") {
			return true
		}
	}
	return false
}
