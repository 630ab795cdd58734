package handler_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/handler"
	"github.com/noah-isme/codesarge-api/internal/service"
)

func newResultsApp(results *mockResultsService, grading *mockGradingService, exams *mockExamService) *fiber.App {
	app := fiber.New()
	h := handler.NewResultsHandler(results, grading, exams, testLogger())
	h.RegisterExamRoutes(app.Group("/api/v1/exams"))
	h.Register(app.Group("/api/v1/submissions"))
	return app
}

func TestResultsHandler_ListSubmissionsFilters(t *testing.T) {
	results := &mockResultsService{list: dto.SubmissionListResponse{
		Items:      []dto.SubmissionResponse{{ID: 1, ExamID: 3, Status: "submitted"}},
		Pagination: dto.NewPagination(1, 20, 1),
	}}
	app := newResultsApp(results, &mockGradingService{}, &mockExamService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions?exam_id=3&status=submitted", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var items []dto.SubmissionResponse
	env := decodeEnvelope(t, resp, &items)
	require.Len(t, items, 1)
	require.Equal(t, int64(1), env.Meta.TotalItems)
	require.Equal(t, uint(3), results.lastFilter.ExamID)
	require.Equal(t, "submitted", results.lastFilter.Status)
}

func TestResultsHandler_ListRejectsBadFilters(t *testing.T) {
	app := newResultsApp(&mockResultsService{}, &mockGradingService{}, &mockExamService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions?exam_id=x", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	app = newResultsApp(&mockResultsService{err: service.ErrInvalidStatusFilter}, &mockGradingService{}, &mockExamService{})
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions?status=pending", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestResultsHandler_ExamResultsScopedToExam(t *testing.T) {
	results := &mockResultsService{list: dto.SubmissionListResponse{Pagination: dto.NewPagination(1, 20, 0)}}
	app := newResultsApp(results, &mockGradingService{}, &mockExamService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/exams/8/results?exam_id=1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(8), results.lastFilter.ExamID)

	app = newResultsApp(results, &mockGradingService{}, &mockExamService{err: service.ErrExamNotFound})
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/exams/8/results", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestResultsHandler_GetSubmission(t *testing.T) {
	results := &mockResultsService{detail: dto.SubmissionDetailResponse{
		SubmissionResponse: dto.SubmissionResponse{ID: 4, Code: "print(2)"},
		TestCases:          []dto.TestCasePair{{Input: "1", ExpectedOutput: "2"}},
	}}
	app := newResultsApp(results, &mockGradingService{}, &mockExamService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/4", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var detail dto.SubmissionDetailResponse
	decodeEnvelope(t, resp, &detail)
	require.Equal(t, "print(2)", detail.Code)
	require.Len(t, detail.TestCases, 1)

	app = newResultsApp(&mockResultsService{err: service.ErrSubmissionNotFound}, &mockGradingService{}, &mockExamService{})
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/4", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestResultsHandler_GradeSubmission(t *testing.T) {
	grading := &mockGradingService{response: dto.SubmissionResponse{
		ID:     4,
		Status: "passed",
		Grade:  &dto.GradeResponse{ID: 1, Score: 100, Feedback: "nice"},
	}}
	app := newResultsApp(&mockResultsService{}, grading, &mockExamService{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/submissions/4/grade", strings.NewReader(`{"score":150,"feedback":"nice"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(4), grading.lastID)
	require.Equal(t, dto.ScoreInput(100), grading.lastPayload.Score)

	var submission dto.SubmissionResponse
	env := decodeEnvelope(t, resp, &submission)
	require.Equal(t, "grade saved", env.Message)
	require.Equal(t, 100, submission.Grade.Score)
}

func TestResultsHandler_GradeAcceptsLooseScores(t *testing.T) {
	cases := []struct {
		body     string
		expected dto.ScoreInput
	}{
		{`{"score":85.5}`, 85},
		{`{"score":1e20}`, 100},
		{`{"score":99999999999999999999}`, 100},
		{`{"score":-99999999999999999999}`, 0},
		{`{"score":"90"}`, 90},
		{`{"score":"72.9 points"}`, 72},
		{`{"score":"abc"}`, 0},
		{`{"score":null}`, 0},
		{`{"score":true}`, 0},
		{`{"feedback":"no score"}`, 0},
	}

	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			grading := &mockGradingService{response: dto.SubmissionResponse{ID: 4}}
			app := newResultsApp(&mockResultsService{}, grading, &mockExamService{})

			req := httptest.NewRequest(http.MethodPut, "/api/v1/submissions/4/grade", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			require.Equal(t, tc.expected, grading.lastPayload.Score)
		})
	}
}

func TestResultsHandler_GradeUnknownSubmission(t *testing.T) {
	app := newResultsApp(&mockResultsService{}, &mockGradingService{err: service.ErrSubmissionNotFound}, &mockExamService{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/submissions/77/grade", strings.NewReader(`{"score":10}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestResultsHandler_ExportAttachment(t *testing.T) {
	results := &mockResultsService{export: service.ResultsExport{FileName: "loops-results.xlsx", Content: []byte("PK-data")}}
	app := newResultsApp(results, &mockGradingService{}, &mockExamService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/exams/6/results/export", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, service.ResultsExportContentType, resp.Header.Get("Content-Type"))
	require.Equal(t, `attachment; filename="loops-results.xlsx"`, resp.Header.Get("Content-Disposition"))
	require.Equal(t, uint(6), results.lastID)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "PK-data", string(body))
}
