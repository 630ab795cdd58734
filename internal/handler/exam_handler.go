package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/service"
	"github.com/noah-isme/codesarge-api/internal/utils"
)

// ExamHandler exposes exam authoring and catalogue endpoints.
type ExamHandler struct {
	exams    service.ExamService
	importer service.ExamImportService
	logger   zerolog.Logger
}

// NewExamHandler constructs the handler.
func NewExamHandler(exams service.ExamService, importer service.ExamImportService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams:    exams,
		importer: importer,
		logger:   logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register wires the exam endpoints into the router group.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Post("/import", h.importFile)
	router.Get("/slug/:slug", h.getBySlug)
	router.Get("/:id", h.get)
}

func (h *ExamHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := dto.ExamFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     page,
		PageSize: pageSize,
	}

	response, err := h.exams.List(withRequestContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, response.Items, "exams retrieved", response.Pagination)
}

func (h *ExamHandler) create(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.exams.Create(withRequestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", response)
}

func (h *ExamHandler) importFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	response, err := h.importer.Import(withRequestContext(c), file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam imported", response)
}

func (h *ExamHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.exams.Get(withRequestContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam retrieved", response)
}

func (h *ExamHandler) getBySlug(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "slug is required")
	}

	response, err := h.exams.GetBySlug(withRequestContext(c), slug)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam retrieved", response)
}

func (h *ExamHandler) handleError(c *fiber.Ctx, err error) error {
	if handled, sendErr := sendValidationError(c, err); handled {
		return sendErr
	}

	switch {
	case errors.Is(err, service.ErrExamTitleRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrImportTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, service.ErrImportTooLarge.Error())
	case errors.Is(err, service.ErrImportTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, service.ErrImportTypeNotAllowed.Error())
	case errors.Is(err, service.ErrImportInvalid):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrExamCreationFailed):
		requestLogger(h.logger, c).Error().Err(err).Msg("exam creation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, service.ErrExamCreationFailed.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("exam operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
