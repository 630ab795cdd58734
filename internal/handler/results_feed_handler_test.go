package handler_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/handler"
	"github.com/noah-isme/codesarge-api/internal/middleware"
	"github.com/noah-isme/codesarge-api/internal/service"
)

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

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

func newFeedApp(feed service.ResultsFeed, exams *mockExamService) *fiber.App {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	handler.NewResultsFeedHandler(feed, exams, testLogger()).Register(app.Group("/api/v1/exams"))
	return app
}

func TestResultsFeedHandler_StreamsExamEvents(t *testing.T) {
	feed := service.NewResultsFeed(nil, nil, "codesarge:test", testLogger())
	app := newFeedApp(feed, &mockExamService{})

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/exams/3/results/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"feed-test"}})
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var hello dto.ResultEvent
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, dto.EventFeedSubscribed, hello.Type)
	require.Equal(t, uint(3), hello.ExamID)

	score := 80
	feed.Publish(context.Background(), dto.ResultEvent{Type: dto.EventGradeSaved, ExamID: 4, SubmissionID: 1})
	feed.Publish(context.Background(), dto.ResultEvent{Type: dto.EventGradeSaved, ExamID: 3, SubmissionID: 2, Status: "passed", Score: &score})

	var event dto.ResultEvent
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, dto.EventGradeSaved, event.Type)
	require.Equal(t, uint(2), event.SubmissionID)
	require.NotNil(t, event.Score)
	require.Equal(t, 80, *event.Score)
}

func TestResultsFeedHandler_RequiresUpgrade(t *testing.T) {
	feed := service.NewResultsFeed(nil, nil, "codesarge:test", testLogger())
	app := newFeedApp(feed, &mockExamService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/exams/3/results/ws", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func upgradeRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestResultsFeedHandler_UnknownExam(t *testing.T) {
	feed := service.NewResultsFeed(nil, nil, "codesarge:test", testLogger())
	app := newFeedApp(feed, &mockExamService{err: service.ErrExamNotFound})

	resp, err := app.Test(upgradeRequest("/api/v1/exams/3/results/ws"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestResultsFeedHandler_ExamLookupFailure(t *testing.T) {
	feed := service.NewResultsFeed(nil, nil, "codesarge:test", testLogger())
	app := newFeedApp(feed, &mockExamService{err: errors.New("connection reset by peer")})

	resp, err := app.Test(upgradeRequest("/api/v1/exams/3/results/ws"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	env := decodeEnvelope(t, resp, nil)
	require.False(t, env.Success)
	require.Equal(t, "internal server error", env.Message)
}
