package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/service"
	"github.com/noah-isme/codesarge-api/internal/utils"
)

// ResultsHandler serves submission results, grading and spreadsheet export.
type ResultsHandler struct {
	results service.ResultsService
	grading service.GradingService
	exams   service.ExamService
	logger  zerolog.Logger
}

// NewResultsHandler constructs the handler.
func NewResultsHandler(results service.ResultsService, grading service.GradingService, exams service.ExamService, logger zerolog.Logger) *ResultsHandler {
	return &ResultsHandler{
		results: results,
		grading: grading,
		exams:   exams,
		logger:  logger.With().Str("component", "results_handler").Logger(),
	}
}

// RegisterExamRoutes binds the per-exam results endpoints under the exams group.
func (h *ResultsHandler) RegisterExamRoutes(router fiber.Router) {
	router.Get("/:id/results", h.listForExam)
	router.Get("/:id/results/export", h.export)
}

// Register binds the submission endpoints.
func (h *ResultsHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Put("/:id/grade", h.grade)
}

func (h *ResultsHandler) list(c *fiber.Ctx) error {
	filter, err := parseSubmissionFilter(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exam_id parameter")
	}
	filter.ExamID = examID

	return h.respondList(c, filter)
}

func (h *ResultsHandler) listForExam(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter, err := parseSubmissionFilter(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.ExamID = examID

	if _, err := h.exams.Get(withRequestContext(c), examID); err != nil {
		return h.handleError(c, err)
	}

	return h.respondList(c, filter)
}

func (h *ResultsHandler) respondList(c *fiber.Ctx, filter dto.SubmissionFilter) error {
	response, err := h.results.List(withRequestContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, response.Items, "submissions retrieved", response.Pagination)
}

func (h *ResultsHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.results.Get(withRequestContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", response)
}

func (h *ResultsHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.grading.Grade(withRequestContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade saved", response)
}

func (h *ResultsHandler) export(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := h.results.Export(withRequestContext(c), examID)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, service.ResultsExportContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.FileName))
	return c.Status(fiber.StatusOK).Send(file.Content)
}

func parseSubmissionFilter(c *fiber.Ctx) (dto.SubmissionFilter, error) {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return dto.SubmissionFilter{}, err
	}
	return dto.SubmissionFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *ResultsHandler) handleError(c *fiber.Ctx, err error) error {
	if handled, sendErr := sendValidationError(c, err); handled {
		return sendErr
	}

	switch {
	case errors.Is(err, service.ErrInvalidStatusFilter):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("results operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
