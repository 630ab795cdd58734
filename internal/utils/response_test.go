package utils_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesarge-api/internal/utils"
)

type wireEnvelope struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Data    json.RawMessage            `json:"data"`
	Meta    json.RawMessage            `json:"meta"`
	Details map[string]json.RawMessage `json:"details"`
}

func TestEnvelopeHelpers(t *testing.T) {
	cases := []struct {
		name        string
		send        func(c *fiber.Ctx) error
		status      int
		success     bool
		message     string
		data        string
		meta        string
		detailField string
	}{
		{
			name: "ok with pagination meta",
			send: func(c *fiber.Ctx) error {
				return utils.OK(c, []string{"two-sum"}, "", map[string]int{"page": 2})
			},
			status:  fiber.StatusOK,
			success: true,
			message: "success",
			data:    `["two-sum"]`,
			meta:    `{"page":2}`,
		},
		{
			name: "created without message",
			send: func(c *fiber.Ctx) error {
				return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "", map[string]uint{"id": 7})
			},
			status:  fiber.StatusCreated,
			success: true,
			message: "success",
			data:    `{"id":7}`,
		},
		{
			name: "zero status falls back to 200",
			send: func(c *fiber.Ctx) error {
				return utils.SendSuccessWithStatus(c, 0, "exam retrieved", nil)
			},
			status:  fiber.StatusOK,
			success: true,
			message: "exam retrieved",
		},
		{
			name: "validation failure keeps details",
			send: func(c *fiber.Ctx) error {
				return utils.Fail(c, fiber.StatusBadRequest, "validation failed", map[string]string{
					"Questions[0].Language": "must be one of [go python javascript]",
				})
			},
			status:      fiber.StatusBadRequest,
			message:     "validation failed",
			detailField: "Questions[0].Language",
		},
		{
			name: "plain error",
			send: func(c *fiber.Ctx) error {
				return utils.SendError(c, fiber.StatusNotFound, "exam not found")
			},
			status:  fiber.StatusNotFound,
			message: "exam not found",
		},
		{
			name: "blank error message",
			send: func(c *fiber.Ctx) error {
				return utils.Fail(c, fiber.StatusConflict, "", nil)
			},
			status:  fiber.StatusConflict,
			message: "error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", tc.send)

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode)

			var body wireEnvelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

			assert.Equal(t, tc.success, body.Success)
			assert.Equal(t, tc.message, body.Message)
			assertRaw(t, tc.data, body.Data)
			assertRaw(t, tc.meta, body.Meta)
			if tc.detailField != "" {
				assert.Contains(t, body.Details, tc.detailField)
			} else {
				assert.Empty(t, body.Details)
			}
		})
	}
}

func assertRaw(t *testing.T, expected string, actual json.RawMessage) {
	t.Helper()
	if expected == "" {
		assert.Empty(t, actual)
		return
	}
	assert.JSONEq(t, expected, string(actual))
}
