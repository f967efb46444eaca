package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
	"github.com/rubriq/rubriq-api/pkg/ai"
)

// ErrAgentNotFound indicates the requested grading agent does not exist.
var ErrAgentNotFound = errors.New("grading agent not found")

// ErrDuplicateAgent indicates an agent with the same name already exists for the question.
var ErrDuplicateAgent = errors.New("agent name already used for this question")

// AgentService exposes grading agent use cases, including the suggestion workflow.
type AgentService interface {
	ListByQuestion(ctx context.Context, questionID uint) ([]dto.AgentResponse, error)
	Get(ctx context.Context, id uint) (dto.AgentResponse, error)
	Create(ctx context.Context, payload dto.AgentCreateRequest) (dto.AgentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AgentUpdateRequest) (dto.AgentResponse, error)
	Delete(ctx context.Context, id uint) error
	Suggest(ctx context.Context, agentID uint, payload dto.AgentSuggestRequest) (dto.AgentSuggestResponse, error)
}

type agentService struct {
	repo        repository.AgentRepository
	questions   repository.QuestionRepository
	rubrics     repository.RubricRepository
	answers     repository.AnswerRepository
	submissions repository.SubmissionRepository
	grader      ai.Grader
	settings    SettingsService
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewAgentService builds a new agent service.
func NewAgentService(
	repo repository.AgentRepository,
	questions repository.QuestionRepository,
	rubrics repository.RubricRepository,
	answers repository.AnswerRepository,
	submissions repository.SubmissionRepository,
	grader ai.Grader,
	settings SettingsService,
	validate *validator.Validate,
	logger zerolog.Logger,
) AgentService {
	return &agentService{
		repo:        repo,
		questions:   questions,
		rubrics:     rubrics,
		answers:     answers,
		submissions: submissions,
		grader:      grader,
		settings:    settings,
		validator:   validate,
		logger:      logger.With().Str("component", "agent_service").Logger(),
		tracer:      otel.Tracer("github.com/rubriq/rubriq-api/internal/service/agent"),
	}
}

func (s *agentService) ListByQuestion(ctx context.Context, questionID uint) ([]dto.AgentResponse, error) {
	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	agents, err := s.repo.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	return dto.NewAgentResponseSlice(agents), nil
}

func (s *agentService) Get(ctx context.Context, id uint) (dto.AgentResponse, error) {
	agent, err := s.byID(ctx, id)
	if err != nil {
		return dto.AgentResponse{}, err
	}

	return dto.NewAgentResponse(agent), nil
}

func (s *agentService) Create(ctx context.Context, payload dto.AgentCreateRequest) (dto.AgentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AgentResponse{}, err
	}

	if _, err := s.questions.GetByID(ctx, payload.QuestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AgentResponse{}, ErrQuestionNotFound
		}
		return dto.AgentResponse{}, err
	}

	agent := models.GradingAgent{
		QuestionID: payload.QuestionID,
		Name:       payload.Name,
		Color:      payload.Color,
		Model:      payload.Model,
	}

	if err := s.repo.Create(ctx, &agent); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AgentResponse{}, ErrDuplicateAgent
		}
		return dto.AgentResponse{}, err
	}

	s.logger.Info().Uint("agent_id", agent.ID).Str("name", agent.Name).Msg("grading agent created")

	return dto.NewAgentResponse(agent), nil
}

func (s *agentService) Update(ctx context.Context, id uint, payload dto.AgentUpdateRequest) (dto.AgentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AgentResponse{}, err
	}

	agent, err := s.byID(ctx, id)
	if err != nil {
		return dto.AgentResponse{}, err
	}

	if payload.Name != nil {
		agent.Name = *payload.Name
	}
	if payload.Color != nil {
		agent.Color = *payload.Color
	}
	if payload.Model != nil {
		agent.Model = *payload.Model
	}

	if err := s.repo.Update(ctx, &agent); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AgentResponse{}, ErrDuplicateAgent
		}
		return dto.AgentResponse{}, err
	}

	return dto.NewAgentResponse(agent), nil
}

func (s *agentService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAgentNotFound
		}
		return err
	}

	s.logger.Info().Uint("agent_id", id).Msg("grading agent deleted")
	return nil
}

// Suggest asks the agent's model to propose a rubric level and feedback for
// one answer. Suggested level indices are bounds-checked against the rubric
// before they are returned.
func (s *agentService) Suggest(ctx context.Context, agentID uint, payload dto.AgentSuggestRequest) (dto.AgentSuggestResponse, error) {
	ctx, span := s.tracer.Start(ctx, "agent.suggest", trace.WithAttributes(
		attribute.Int64("agent_id", int64(agentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AgentSuggestResponse{}, err
	}

	agent, err := s.byID(ctx, agentID)
	if err != nil {
		span.RecordError(err)
		return dto.AgentSuggestResponse{}, err
	}

	answer, err := s.answers.GetByID(ctx, payload.AnswerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AgentSuggestResponse{}, ErrAnswerNotFound
		}
		return dto.AgentSuggestResponse{}, err
	}

	if answer.QuestionID != agent.QuestionID {
		return dto.AgentSuggestResponse{}, ErrAnswerNotFound
	}

	question, err := s.questions.GetByID(ctx, agent.QuestionID)
	if err != nil {
		return dto.AgentSuggestResponse{}, err
	}

	rubrics, err := s.rubrics.ListByQuestion(ctx, agent.QuestionID)
	if err != nil {
		return dto.AgentSuggestResponse{}, err
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return dto.AgentSuggestResponse{}, err
	}

	input := ai.SuggestionInput{
		Model:        agent.Model,
		SystemPrompt: settings.GradingPrompt,
		QuestionText: question.QuestionText,
		AnswerText:   answer.AnswerText,
		Rubrics:      rubricContexts(rubrics),
	}

	if payload.IncludeSiblings || payload.IncludePriorFeedback {
		if err := s.attachSiblingContext(ctx, &input, answer, rubrics, payload); err != nil {
			return dto.AgentSuggestResponse{}, err
		}
	}

	if payload.IncludeFullSubmission {
		if err := s.attachSubmissionContext(ctx, &input, answer); err != nil {
			return dto.AgentSuggestResponse{}, err
		}
	}

	suggestions, err := s.grader.SuggestEvaluations(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "suggestion_failed")
		return dto.AgentSuggestResponse{}, err
	}

	levelCounts := make(map[uint]int, len(rubrics))
	for _, rubric := range rubrics {
		levelCounts[rubric.ID] = len(rubric.LevelList())
	}

	results := make([]dto.SuggestionPayload, 0, len(suggestions))
	for _, suggestion := range suggestions {
		count, known := levelCounts[suggestion.RubricID]
		if !known || suggestion.SuggestedLevelIndex < 0 || suggestion.SuggestedLevelIndex >= count {
			s.logger.Warn().
				Uint("agent_id", agentID).
				Uint("rubric_id", suggestion.RubricID).
				Int("level_index", suggestion.SuggestedLevelIndex).
				Msg("discarding out-of-range suggestion")
			continue
		}
		results = append(results, dto.SuggestionPayload{
			RubricID:              suggestion.RubricID,
			SuggestedLevelIndex:   suggestion.SuggestedLevelIndex,
			Justification:         suggestion.Justification,
			ImprovementSuggestion: suggestion.ImprovementSuggestion,
		})
	}

	span.SetAttributes(attribute.Int("suggestions", len(results)))

	return dto.AgentSuggestResponse{
		AgentID:     agentID,
		AnswerID:    answer.ID,
		Suggestions: results,
	}, nil
}

func (s *agentService) attachSiblingContext(
	ctx context.Context,
	input *ai.SuggestionInput,
	answer models.Answer,
	rubrics []models.Rubric,
	payload dto.AgentSuggestRequest,
) error {
	siblings, err := s.answers.ListByQuestion(ctx, answer.QuestionID)
	if err != nil {
		return err
	}

	rubricNames := make(map[uint]models.Rubric, len(rubrics))
	for _, rubric := range rubrics {
		rubricNames[rubric.ID] = rubric
	}

	for _, sibling := range siblings {
		if sibling.ID == answer.ID {
			continue
		}

		submission, err := s.submissions.GetByID(ctx, sibling.SubmissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}

		if payload.IncludeSiblings {
			input.SiblingAnswers = append(input.SiblingAnswers, ai.SiblingAnswer{
				StudentName: submission.StudentName,
				AnswerText:  sibling.AnswerText,
			})
		}

		if !payload.IncludePriorFeedback {
			continue
		}

		// Evaluations already recorded on sibling answers serve as the
		// agent's accepted earlier suggestions.
		for _, evaluation := range sibling.EvaluationList() {
			rubric, ok := rubricNames[evaluation.RubricID]
			if !ok {
				continue
			}
			levels := rubric.LevelList()
			if evaluation.SelectedLevelIndex < 0 || evaluation.SelectedLevelIndex >= len(levels) {
				continue
			}
			input.PriorSuggestions = append(input.PriorSuggestions, ai.PriorSuggestion{
				StudentName:  submission.StudentName,
				CriteriaName: rubric.CriteriaName,
				LevelName:    levels[evaluation.SelectedLevelIndex].Name,
				Feedback:     evaluation.Feedback,
			})
		}
	}

	return nil
}

func (s *agentService) attachSubmissionContext(ctx context.Context, input *ai.SuggestionInput, answer models.Answer) error {
	all, err := s.answers.ListBySubmission(ctx, answer.SubmissionID)
	if err != nil {
		return err
	}

	for _, item := range all {
		question, err := s.questions.GetByID(ctx, item.QuestionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		input.FullSubmission = append(input.FullSubmission, ai.SubmissionContext{
			QuestionText: question.QuestionText,
			AnswerText:   item.AnswerText,
		})
	}

	return nil
}

func rubricContexts(rubrics []models.Rubric) []ai.RubricContext {
	contexts := make([]ai.RubricContext, 0, len(rubrics))
	for _, rubric := range rubrics {
		levels := rubric.LevelList()
		names := make([]string, 0, len(levels))
		details := make([]string, 0, len(levels))
		for _, level := range levels {
			names = append(names, level.Name)
			details = append(details, level.Description)
		}
		contexts = append(contexts, ai.RubricContext{
			RubricID:     rubric.ID,
			CriteriaName: rubric.CriteriaName,
			LevelNames:   names,
			LevelDetails: details,
		})
	}
	return contexts
}

func (s *agentService) byID(ctx context.Context, id uint) (models.GradingAgent, error) {
	agent, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradingAgent{}, ErrAgentNotFound
		}
		return models.GradingAgent{}, err
	}
	return agent, nil
}
