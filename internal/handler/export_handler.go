package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rubriq/rubriq-api/internal/service"
	"github.com/rubriq/rubriq-api/internal/utils"
)

// ExportHandler serves CSV downloads of assignment grading results.
type ExportHandler struct {
	service service.ExportService
	logger  zerolog.Logger
}

// NewExportHandler constructs the handler.
func NewExportHandler(service service.ExportService, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		service: service,
		logger:  logger.With().Str("component", "export_handler").Logger(),
	}
}

// Register attaches the export endpoint to the router group.
func (h *ExportHandler) Register(router fiber.Router) {
	router.Get("", h.export)
}

func (h *ExportHandler) export(c *fiber.Ctx) error {
	assignmentID, err := parseUintQuery(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	fileName, data, err := h.service.ExportCSV(c.Context(), assignmentID)
	if err != nil {
		if errors.Is(err, service.ErrAssignmentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		}
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Send(data)
}
