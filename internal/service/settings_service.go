package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
)

// SettingsService exposes the single instructor-tunable configuration row.
type SettingsService interface {
	Get(ctx context.Context) (dto.SettingsResponse, error)
	Update(ctx context.Context, payload dto.SettingsUpdateRequest) (dto.SettingsResponse, error)
	// Current returns the raw settings row for other services that need the
	// active prompt templates and model names.
	Current(ctx context.Context) (models.Settings, error)
}

type settingsService struct {
	repo      repository.SettingsRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSettingsService builds a new settings service.
func NewSettingsService(repo repository.SettingsRepository, validate *validator.Validate, logger zerolog.Logger) SettingsService {
	return &settingsService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "settings_service").Logger(),
	}
}

func (s *settingsService) Current(ctx context.Context) (models.Settings, error) {
	return s.repo.Ensure(ctx, models.DefaultSettings())
}

func (s *settingsService) Get(ctx context.Context) (dto.SettingsResponse, error) {
	settings, err := s.Current(ctx)
	if err != nil {
		return dto.SettingsResponse{}, err
	}

	return dto.NewSettingsResponse(settings), nil
}

func (s *settingsService) Update(ctx context.Context, payload dto.SettingsUpdateRequest) (dto.SettingsResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SettingsResponse{}, err
	}

	settings, err := s.Current(ctx)
	if err != nil {
		return dto.SettingsResponse{}, err
	}

	if payload.GradingPrompt != nil {
		settings.GradingPrompt = *payload.GradingPrompt
	}
	if payload.ExtractionPrompt != nil {
		settings.ExtractionPrompt = *payload.ExtractionPrompt
	}
	if payload.MappingPrompt != nil {
		settings.MappingPrompt = *payload.MappingPrompt
	}
	if payload.RubricPrompt != nil {
		settings.RubricPrompt = *payload.RubricPrompt
	}
	if payload.DefaultModel != nil {
		settings.DefaultModel = *payload.DefaultModel
	}
	if payload.VisionModel != nil {
		settings.VisionModel = *payload.VisionModel
	}
	if payload.VisionExtraction != nil {
		settings.VisionExtraction = *payload.VisionExtraction
	}
	if payload.AutoMapping != nil {
		settings.AutoMapping = *payload.AutoMapping
	}

	if err := s.repo.Update(ctx, &settings); err != nil {
		return dto.SettingsResponse{}, err
	}

	s.logger.Info().Msg("settings updated")

	return dto.NewSettingsResponse(settings), nil
}
