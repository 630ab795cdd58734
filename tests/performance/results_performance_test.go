package performance_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/codesarge-api/internal/database"
	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/handler"
	"github.com/noah-isme/codesarge-api/internal/middleware"
	"github.com/noah-isme/codesarge-api/internal/repository"
	"github.com/noah-isme/codesarge-api/internal/service"
)

func setupResultsPerformanceApp(t *testing.T) (*fiber.App, service.ExamService, *gorm.DB) {
	t.Helper()

	db, err := database.Connect(fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())

	examRepo := repository.NewExamRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	feed := service.NewResultsFeed(nil, nil, "codesarge:perf", logger)
	examService := service.NewExamService(examRepo, validate, nil, nil, logger)
	resultsService := service.NewResultsService(submissionRepo, examRepo, logger)

	app := fiber.New()
	app.Use(middleware.CorrelationID())
	exams := app.Group("/api/v1/exams")
	handler.NewExamHandler(examService, nil, logger).Register(exams)
	handler.NewResultsHandler(resultsService, nil, examService, logger).RegisterExamRoutes(exams)
	handler.NewResultsFeedHandler(feed, examService, logger).Register(exams)

	return app, examService, db
}

func seedExams(t *testing.T, exams service.ExamService, count int) uint {
	t.Helper()
	var lastID uint
	for i := 0; i < count; i++ {
		created, err := exams.Create(context.Background(), dto.ExamCreateRequest{
			Title: "Performance exam " + strconv.Itoa(i),
			Questions: []dto.QuestionRequest{
				{Title: "Q", Description: "d", Language: "python", TestCases: []dto.TestCaseRequest{{Input: "1", ExpectedOutput: "1"}}},
			},
		})
		require.NoError(t, err)
		lastID = created.ID
	}
	return lastID
}

func TestExamCatalogueP95LatencyBelow250ms(t *testing.T) {
	app, exams, _ := setupResultsPerformanceApp(t)
	seedExams(t, exams, 30)

	runs := 40
	durations := make([]time.Duration, 0, runs)

	for i := 0; i < runs; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exams?page_size=20", nil)
		start := time.Now()
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		durations = append(durations, time.Since(start))
	}

	require.LessOrEqual(t, percentile(durations, 0.95), 250*time.Millisecond)
}

func TestResultsFeedWebsocketP95Under250ms(t *testing.T) {
	app, exams, _ := setupResultsPerformanceApp(t)
	examID := seedExams(t, exams, 1)

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	url := fmt.Sprintf("ws%s/api/v1/exams/%d/results/ws", strings.TrimPrefix(baseURL, "http"), examID)
	clients := 200
	durations := make([]time.Duration, 0, clients)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	for i := 0; i < clients; i++ {
		start := time.Now()
		conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"perf-" + strconv.Itoa(i)}})
		if err != nil {
			t.Fatalf("websocket dial failed: %v", err)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		_, _, _ = conn.ReadMessage()
		_ = conn.Close()

		durations = append(durations, time.Since(start))
	}

	p95 := percentile(durations, 0.95)
	if p95 > 250*time.Millisecond {
		t.Fatalf("expected websocket P95 <= 250ms, got %s", p95)
	}
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(math.Ceil(pct*float64(len(sorted)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}
