package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/service"
	"github.com/rubriq/rubriq-api/internal/utils"
)

// AnswerHandler wires answer HTTP routes, including grading.
type AnswerHandler struct {
	service service.AnswerService
	logger  zerolog.Logger
}

// NewAnswerHandler constructs the handler.
func NewAnswerHandler(service service.AnswerService, logger zerolog.Logger) *AnswerHandler {
	return &AnswerHandler{
		service: service,
		logger:  logger.With().Str("component", "answer_handler").Logger(),
	}
}

// Register attaches answer endpoints to the router group.
func (h *AnswerHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Put("/:id/evaluations", h.grade)
	router.Delete("/:id", h.delete)
}

// RegisterSubmissionRoutes attaches answer listing nested under a submission.
func (h *AnswerHandler) RegisterSubmissionRoutes(router fiber.Router) {
	router.Get("/:id/answers/all", h.listBySubmission)
}

func (h *AnswerHandler) listBySubmission(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	answers, err := h.service.ListBySubmission(c.Context(), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answers retrieved", answers)
}

func (h *AnswerHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	answer, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer retrieved", answer)
}

func (h *AnswerHandler) create(c *fiber.Ctx) error {
	var payload dto.AnswerCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "answer created", answer)
}

func (h *AnswerHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AnswerUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer updated", answer)
}

func (h *AnswerHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AnswerGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := h.service.Grade(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer graded", answer)
}

func (h *AnswerHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer deleted", fiber.Map{"id": id})
}

func (h *AnswerHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAnswerNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "answer not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrInvalidEvaluation):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
