package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/service"
	"github.com/rubriq/rubriq-api/internal/utils"
	"github.com/rubriq/rubriq-api/pkg/ai"
)

// RubricHandler wires rubric HTTP routes, including LLM-backed generation.
type RubricHandler struct {
	service service.RubricService
	logger  zerolog.Logger
}

// NewRubricHandler constructs the handler.
func NewRubricHandler(service service.RubricService, logger zerolog.Logger) *RubricHandler {
	return &RubricHandler{
		service: service,
		logger:  logger.With().Str("component", "rubric_handler").Logger(),
	}
}

// Register attaches rubric endpoints to the router group.
func (h *RubricHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

// RegisterQuestionRoutes attaches rubric endpoints nested under a question.
func (h *RubricHandler) RegisterQuestionRoutes(router fiber.Router) {
	router.Get("/:id/rubrics", h.listByQuestion)
	router.Post("/:id/rubrics/generate", h.generate)
}

func (h *RubricHandler) listByQuestion(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	rubrics, err := h.service.ListByQuestion(c.Context(), questionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "rubrics retrieved", rubrics)
}

func (h *RubricHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	rubric, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "rubric retrieved", rubric)
}

func (h *RubricHandler) create(c *fiber.Ctx) error {
	var payload dto.RubricCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	rubric, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubric created", rubric)
}

func (h *RubricHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RubricUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	rubric, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "rubric updated", rubric)
}

func (h *RubricHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "rubric deleted", fiber.Map{"id": id})
}

func (h *RubricHandler) generate(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	rubrics, err := h.service.Generate(c.Context(), questionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubrics generated", rubrics)
}

func (h *RubricHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrRubricNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "rubric not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, ai.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusUnauthorized, "grading model rejected credentials")
	case errors.Is(err, ai.ErrMalformedResponse):
		return utils.SendError(c, fiber.StatusInternalServerError, "grading model returned malformed response")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
