package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/models"
	"github.com/noah-isme/codesarge-api/internal/service"
	"github.com/noah-isme/codesarge-api/internal/utils"
)

// AttemptHandler drives the question-by-question exam session.
type AttemptHandler struct {
	sessions service.ExamSessionService
	logger   zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(sessions service.ExamSessionService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		sessions: sessions,
		logger:   logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// RegisterExamRoutes binds the attempt entrypoint under the exams group.
func (h *AttemptHandler) RegisterExamRoutes(router fiber.Router) {
	router.Post("/:id/attempts", h.start)
}

// Register binds attempt navigation routes. runGuards wrap the simulated run endpoint.
func (h *AttemptHandler) Register(router fiber.Router, runGuards ...fiber.Handler) {
	router.Get("/:id", h.get)
	router.Post("/:id/next", h.next)
	router.Post("/:id/previous", h.previous)

	runHandlers := append(append([]fiber.Handler{}, runGuards...), h.run)
	router.Post("/:id/run", runHandlers...)
}

func (h *AttemptHandler) start(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.sessions.Start(withRequestContext(c), examID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt started", response)
}

func (h *AttemptHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.sessions.Get(withRequestContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempt retrieved", response)
}

func (h *AttemptHandler) next(c *fiber.Ctx) error {
	id, payload, err := h.parseNavigation(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.sessions.Next(withRequestContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	message := "answer saved"
	if response.State == models.AttemptStateFinished {
		message = "exam finished"
	}
	return utils.SendSuccess(c, message, response)
}

func (h *AttemptHandler) previous(c *fiber.Ctx) error {
	id, payload, err := h.parseNavigation(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.sessions.Previous(withRequestContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer saved", response)
}

func (h *AttemptHandler) run(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.sessions.RunTests(withRequestContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "tests executed", response)
}

// parseNavigation accepts an empty body as an empty editor.
func (h *AttemptHandler) parseNavigation(c *fiber.Ctx) (uint, dto.AttemptCodeRequest, error) {
	var payload dto.AttemptCodeRequest
	id, err := parseUintParam(c, "id")
	if err != nil {
		return 0, payload, err
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return 0, payload, errors.New("invalid request body")
		}
	}
	return id, payload, nil
}

func (h *AttemptHandler) handleError(c *fiber.Ctx, err error) error {
	if handled, sendErr := sendValidationError(c, err); handled {
		return sendErr
	}

	switch {
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, service.ErrAttemptNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAttemptFinished):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrExamHasNoQuestions):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("attempt operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
