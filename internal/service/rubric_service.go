package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
	"github.com/rubriq/rubriq-api/pkg/ai"
)

// ErrRubricNotFound indicates the requested rubric does not exist.
var ErrRubricNotFound = errors.New("rubric not found")

// RubricService exposes rubric domain use cases.
type RubricService interface {
	ListByQuestion(ctx context.Context, questionID uint) ([]dto.RubricResponse, error)
	Get(ctx context.Context, id uint) (dto.RubricResponse, error)
	Create(ctx context.Context, payload dto.RubricCreateRequest) (dto.RubricResponse, error)
	Update(ctx context.Context, id uint, payload dto.RubricUpdateRequest) (dto.RubricResponse, error)
	Delete(ctx context.Context, id uint) error
	Generate(ctx context.Context, questionID uint) ([]dto.RubricResponse, error)
}

type rubricService struct {
	repo        repository.RubricRepository
	questions   repository.QuestionRepository
	assignments repository.AssignmentRepository
	grader      ai.Grader
	settings    SettingsService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewRubricService builds a new rubric service.
func NewRubricService(
	repo repository.RubricRepository,
	questions repository.QuestionRepository,
	assignments repository.AssignmentRepository,
	grader ai.Grader,
	settings SettingsService,
	validate *validator.Validate,
	logger zerolog.Logger,
) RubricService {
	return &rubricService{
		repo:        repo,
		questions:   questions,
		assignments: assignments,
		grader:      grader,
		settings:    settings,
		validator:   validate,
		logger:      logger.With().Str("component", "rubric_service").Logger(),
	}
}

func (s *rubricService) ListByQuestion(ctx context.Context, questionID uint) ([]dto.RubricResponse, error) {
	if _, err := s.questionByID(ctx, questionID); err != nil {
		return nil, err
	}

	rubrics, err := s.repo.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	return dto.NewRubricResponseSlice(rubrics), nil
}

func (s *rubricService) Get(ctx context.Context, id uint) (dto.RubricResponse, error) {
	rubric, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RubricResponse{}, ErrRubricNotFound
		}

		return dto.RubricResponse{}, err
	}

	return dto.NewRubricResponse(rubric), nil
}

func (s *rubricService) Create(ctx context.Context, payload dto.RubricCreateRequest) (dto.RubricResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RubricResponse{}, err
	}

	if _, err := s.questionByID(ctx, payload.QuestionID); err != nil {
		return dto.RubricResponse{}, err
	}

	rubric := models.Rubric{
		QuestionID:   payload.QuestionID,
		CriteriaName: payload.CriteriaName,
	}
	rubric.SetLevels(dto.ModelLevels(payload.Levels))

	if err := s.repo.Create(ctx, &rubric); err != nil {
		return dto.RubricResponse{}, err
	}

	s.logger.Info().Uint("rubric_id", rubric.ID).Uint("question_id", rubric.QuestionID).Msg("rubric created")

	return dto.NewRubricResponse(rubric), nil
}

func (s *rubricService) Update(ctx context.Context, id uint, payload dto.RubricUpdateRequest) (dto.RubricResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RubricResponse{}, err
	}

	rubric, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RubricResponse{}, ErrRubricNotFound
		}

		return dto.RubricResponse{}, err
	}

	if payload.CriteriaName != nil {
		rubric.CriteriaName = *payload.CriteriaName
	}

	if len(payload.Levels) > 0 {
		rubric.SetLevels(dto.ModelLevels(payload.Levels))
	}

	if err := s.repo.Update(ctx, &rubric); err != nil {
		return dto.RubricResponse{}, err
	}

	return dto.NewRubricResponse(rubric), nil
}

func (s *rubricService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRubricNotFound
		}
		return err
	}

	s.logger.Info().Uint("rubric_id", id).Msg("rubric deleted")
	return nil
}

// Generate drafts criteria for a question via the configured model and
// persists the accepted result.
func (s *rubricService) Generate(ctx context.Context, questionID uint) ([]dto.RubricResponse, error) {
	question, err := s.questionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	totalPoints := 0.0
	if assignment, err := s.assignments.GetByID(ctx, question.AssignmentID); err == nil {
		totalPoints = assignment.TotalPoints
	}

	generated, err := s.grader.GenerateRubrics(ctx, ai.RubricGenerationInput{
		Model:        settings.DefaultModel,
		SystemPrompt: settings.RubricPrompt,
		QuestionText: question.QuestionText,
		TotalPoints:  totalPoints,
	})
	if err != nil {
		return nil, err
	}

	rubrics := make([]models.Rubric, 0, len(generated))
	for _, item := range generated {
		levels := make([]models.RubricLevel, 0, len(item.Levels))
		for _, level := range item.Levels {
			levels = append(levels, models.RubricLevel{
				Name:        level.Name,
				Description: level.Description,
				Percentage:  level.Percentage,
			})
		}

		rubric := models.Rubric{
			QuestionID:   questionID,
			CriteriaName: item.CriteriaName,
		}
		rubric.SetLevels(levels)
		rubrics = append(rubrics, rubric)
	}

	if err := s.repo.CreateBatch(ctx, rubrics); err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("question_id", questionID).
		Int("rubrics", len(rubrics)).
		Msg("rubrics generated")

	return dto.NewRubricResponseSlice(rubrics), nil
}

func (s *rubricService) questionByID(ctx context.Context, questionID uint) (models.Question, error) {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}
		return models.Question{}, err
	}
	return question, nil
}
