package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rubriq/rubriq-api/internal/service"
	"github.com/rubriq/rubriq-api/internal/utils"
)

// BatchHandler wires multi-file upload batch HTTP routes.
type BatchHandler struct {
	service service.BatchService
	logger  zerolog.Logger
}

// NewBatchHandler constructs the handler.
func NewBatchHandler(service service.BatchService, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{
		service: service,
		logger:  logger.With().Str("component", "batch_handler").Logger(),
	}
}

// Register attaches batch progress endpoints to the router group.
func (h *BatchHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
}

// RegisterAssignmentRoutes attaches the batch upload endpoint nested under an assignment.
func (h *BatchHandler) RegisterAssignmentRoutes(router fiber.Router) {
	router.Post("/:id/batches", h.start)
}

func (h *BatchHandler) start(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "multipart form required")
	}

	files := form.File["files"]
	batch, err := h.service.Start(c.Context(), assignmentID, files)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "upload batch started", batch)
}

func (h *BatchHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	batch, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "batch progress retrieved", batch)
}

func (h *BatchHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "batch not found")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrEmptyBatch):
		return utils.SendError(c, fiber.StatusBadRequest, "no files in upload batch")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
