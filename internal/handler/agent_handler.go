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

// AgentHandler wires grading agent HTTP routes, including LLM evaluation
// suggestions.
type AgentHandler struct {
	service service.AgentService
	logger  zerolog.Logger
}

// NewAgentHandler constructs the handler.
func NewAgentHandler(service service.AgentService, logger zerolog.Logger) *AgentHandler {
	return &AgentHandler{
		service: service,
		logger:  logger.With().Str("component", "agent_handler").Logger(),
	}
}

// Register attaches agent endpoints to the router group.
func (h *AgentHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/suggest", h.suggest)
}

// RegisterQuestionRoutes attaches agent listing nested under a question.
func (h *AgentHandler) RegisterQuestionRoutes(router fiber.Router) {
	router.Get("/:id/agents", h.listByQuestion)
}

func (h *AgentHandler) listByQuestion(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	agents, err := h.service.ListByQuestion(c.Context(), questionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "agents retrieved", agents)
}

func (h *AgentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	agent, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "agent retrieved", agent)
}

func (h *AgentHandler) create(c *fiber.Ctx) error {
	var payload dto.AgentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	agent, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "agent created", agent)
}

func (h *AgentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AgentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	agent, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "agent updated", agent)
}

func (h *AgentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "agent deleted", fiber.Map{"id": id})
}

func (h *AgentHandler) suggest(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AgentSuggestRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	suggestions, err := h.service.Suggest(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "suggestions generated", suggestions)
}

func (h *AgentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAgentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "agent not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrAnswerNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "answer not found")
	case errors.Is(err, service.ErrDuplicateAgent):
		return utils.SendError(c, fiber.StatusConflict, "agent name already used for this question")
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
