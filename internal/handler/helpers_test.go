package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/service"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    *dto.Pagination   `json:"meta"`
	Details map[string]string `json:"details"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

func decodeEnvelope(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()
	var body envelope
	decodeResponse(t, resp, &body)
	if data != nil && len(body.Data) > 0 {
		require.NoError(t, json.Unmarshal(body.Data, data))
	}
	return body
}

type mockExamService struct {
	created    dto.ExamCreateRequest
	lastFilter dto.ExamFilter
	lastID     uint
	lastSlug   string
	detail     dto.ExamDetailResponse
	list       dto.ExamListResponse
	err        error
}

func (m *mockExamService) Create(_ context.Context, payload dto.ExamCreateRequest) (dto.ExamDetailResponse, error) {
	m.created = payload
	if m.err != nil {
		return dto.ExamDetailResponse{}, m.err
	}
	return m.detail, nil
}

func (m *mockExamService) List(_ context.Context, filter dto.ExamFilter) (dto.ExamListResponse, error) {
	m.lastFilter = filter
	if m.err != nil {
		return dto.ExamListResponse{}, m.err
	}
	return m.list, nil
}

func (m *mockExamService) Get(_ context.Context, id uint) (dto.ExamDetailResponse, error) {
	m.lastID = id
	if m.err != nil {
		return dto.ExamDetailResponse{}, m.err
	}
	return m.detail, nil
}

func (m *mockExamService) GetBySlug(_ context.Context, slug string) (dto.ExamDetailResponse, error) {
	m.lastSlug = slug
	if m.err != nil {
		return dto.ExamDetailResponse{}, m.err
	}
	return m.detail, nil
}

type mockImportService struct {
	filename string
	size     int64
	detail   dto.ExamDetailResponse
	err      error
}

func (m *mockImportService) Import(_ context.Context, file *multipart.FileHeader) (dto.ExamDetailResponse, error) {
	m.filename = file.Filename
	m.size = file.Size
	if m.err != nil {
		return dto.ExamDetailResponse{}, m.err
	}
	return m.detail, nil
}

type mockSessionService struct {
	calls       []string
	lastID      uint
	lastPayload dto.AttemptCodeRequest
	response    dto.AttemptResponse
	run         dto.TestRunResponse
	err         error
}

func (m *mockSessionService) record(name string, id uint) error {
	m.calls = append(m.calls, name)
	m.lastID = id
	return m.err
}

func (m *mockSessionService) Start(_ context.Context, examID uint) (dto.AttemptResponse, error) {
	if err := m.record("start", examID); err != nil {
		return dto.AttemptResponse{}, err
	}
	return m.response, nil
}

func (m *mockSessionService) Get(_ context.Context, attemptID uint) (dto.AttemptResponse, error) {
	if err := m.record("get", attemptID); err != nil {
		return dto.AttemptResponse{}, err
	}
	return m.response, nil
}

func (m *mockSessionService) Next(_ context.Context, attemptID uint, payload dto.AttemptCodeRequest) (dto.AttemptResponse, error) {
	m.lastPayload = payload
	if err := m.record("next", attemptID); err != nil {
		return dto.AttemptResponse{}, err
	}
	return m.response, nil
}

func (m *mockSessionService) Previous(_ context.Context, attemptID uint, payload dto.AttemptCodeRequest) (dto.AttemptResponse, error) {
	m.lastPayload = payload
	if err := m.record("previous", attemptID); err != nil {
		return dto.AttemptResponse{}, err
	}
	return m.response, nil
}

func (m *mockSessionService) RunTests(_ context.Context, attemptID uint) (dto.TestRunResponse, error) {
	if err := m.record("run", attemptID); err != nil {
		return dto.TestRunResponse{}, err
	}
	return m.run, nil
}

type mockResultsService struct {
	lastFilter dto.SubmissionFilter
	lastID     uint
	list       dto.SubmissionListResponse
	detail     dto.SubmissionDetailResponse
	export     service.ResultsExport
	err        error
}

func (m *mockResultsService) List(_ context.Context, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error) {
	m.lastFilter = filter
	if m.err != nil {
		return dto.SubmissionListResponse{}, m.err
	}
	return m.list, nil
}

func (m *mockResultsService) Get(_ context.Context, id uint) (dto.SubmissionDetailResponse, error) {
	m.lastID = id
	if m.err != nil {
		return dto.SubmissionDetailResponse{}, m.err
	}
	return m.detail, nil
}

func (m *mockResultsService) Export(_ context.Context, examID uint) (service.ResultsExport, error) {
	m.lastID = examID
	if m.err != nil {
		return service.ResultsExport{}, m.err
	}
	return m.export, nil
}

type mockGradingService struct {
	lastID      uint
	lastPayload dto.GradeRequest
	response    dto.SubmissionResponse
	err         error
}

func (m *mockGradingService) Grade(_ context.Context, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error) {
	m.lastID = submissionID
	m.lastPayload = payload
	if m.err != nil {
		return dto.SubmissionResponse{}, m.err
	}
	return m.response, nil
}

type mockActivityService struct {
	lastRequest dto.ActivityListRequest
	response    dto.ActivityListResponse
	err         error
}

func (m *mockActivityService) Record(_ context.Context, entry service.ActivityEntry) (dto.ActivityResponse, error) {
	return dto.ActivityResponse{Action: entry.Action, EntityType: entry.EntityType}, nil
}

func (m *mockActivityService) List(_ context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	m.lastRequest = req
	if m.err != nil {
		return dto.ActivityListResponse{}, m.err
	}
	return m.response, nil
}
