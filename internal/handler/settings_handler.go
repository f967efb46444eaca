package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/service"
	"github.com/rubriq/rubriq-api/internal/utils"
)

// SettingsHandler wires the settings singleton HTTP routes.
type SettingsHandler struct {
	service service.SettingsService
	logger  zerolog.Logger
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(service service.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register attaches settings endpoints to the router group.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("", h.get)
	router.Put("", h.update)
}

func (h *SettingsHandler) get(c *fiber.Ctx) error {
	settings, err := h.service.Get(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "settings retrieved", settings)
}

func (h *SettingsHandler) update(c *fiber.Ctx) error {
	var payload dto.SettingsUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	settings, err := h.service.Update(c.Context(), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "settings updated", settings)
}

func (h *SettingsHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
