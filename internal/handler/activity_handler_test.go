package handler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/handler"
)

func TestActivityHandler_List(t *testing.T) {
	svc := &mockActivityService{response: dto.ActivityListResponse{
		Items:      []dto.ActivityResponse{{ID: 1, Action: "grade.saved", EntityType: "submission"}},
		Pagination: dto.NewPagination(1, 10, 1),
	}}
	app := fiber.New()
	handler.NewActivityHandler(svc, testLogger()).Register(app.Group("/api/v1/activity"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/activity?action=grade.saved&entity_type=submission&page_size=10", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var items []dto.ActivityResponse
	env := decodeEnvelope(t, resp, &items)
	require.True(t, env.Success)
	require.Len(t, items, 1)
	require.Equal(t, dto.ActivityListRequest{PageSize: 10, Action: "grade.saved", EntityType: "submission"}, svc.lastRequest)
}

func TestActivityHandler_ServiceError(t *testing.T) {
	app := fiber.New()
	handler.NewActivityHandler(&mockActivityService{err: errors.New("boom")}, testLogger()).Register(app.Group("/api/v1/activity"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/activity", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
