package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/grading"
	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
)

// ErrAnswerNotFound indicates the requested answer does not exist.
var ErrAnswerNotFound = errors.New("answer not found")

// ErrInvalidEvaluation indicates a grading payload references an unknown
// rubric, an out-of-range level, or the same rubric twice.
var ErrInvalidEvaluation = errors.New("invalid evaluation")

// AnswerService exposes answer domain use cases, including grading.
type AnswerService interface {
	ListBySubmission(ctx context.Context, submissionID uint) ([]dto.AnswerResponse, error)
	Get(ctx context.Context, id uint) (dto.AnswerResponse, error)
	Create(ctx context.Context, payload dto.AnswerCreateRequest) (dto.AnswerResponse, error)
	Update(ctx context.Context, id uint, payload dto.AnswerUpdateRequest) (dto.AnswerResponse, error)
	Grade(ctx context.Context, id uint, payload dto.AnswerGradeRequest) (dto.AnswerResponse, error)
	Delete(ctx context.Context, id uint) error
}

type answerService struct {
	repo        repository.AnswerRepository
	rubrics     repository.RubricRepository
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	events      EventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewAnswerService builds a new answer service.
func NewAnswerService(
	repo repository.AnswerRepository,
	rubrics repository.RubricRepository,
	submissions repository.SubmissionRepository,
	questions repository.QuestionRepository,
	events EventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) AnswerService {
	return &answerService{
		repo:        repo,
		rubrics:     rubrics,
		submissions: submissions,
		questions:   questions,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "answer_service").Logger(),
		tracer:      otel.Tracer("github.com/rubriq/rubriq-api/internal/service/answer"),
	}
}

func (s *answerService) ListBySubmission(ctx context.Context, submissionID uint) ([]dto.AnswerResponse, error) {
	if _, err := s.submissions.GetByID(ctx, submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	answers, err := s.repo.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AnswerResponse, 0, len(answers))
	for _, answer := range answers {
		rubrics, err := s.rubrics.ListByQuestion(ctx, answer.QuestionID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, dto.NewAnswerResponse(answer, grading.IsFullyGraded(rubrics, answer.EvaluationList())))
	}

	return responses, nil
}

func (s *answerService) Get(ctx context.Context, id uint) (dto.AnswerResponse, error) {
	answer, err := s.byID(ctx, id)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	rubrics, err := s.rubrics.ListByQuestion(ctx, answer.QuestionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	return dto.NewAnswerResponse(answer, grading.IsFullyGraded(rubrics, answer.EvaluationList())), nil
}

func (s *answerService) Create(ctx context.Context, payload dto.AnswerCreateRequest) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}

	if _, err := s.submissions.GetByID(ctx, payload.SubmissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrSubmissionNotFound
		}
		return dto.AnswerResponse{}, err
	}

	if _, err := s.questions.GetByID(ctx, payload.QuestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrQuestionNotFound
		}
		return dto.AnswerResponse{}, err
	}

	answer := models.Answer{
		SubmissionID: payload.SubmissionID,
		QuestionID:   payload.QuestionID,
		AnswerText:   payload.AnswerText,
	}
	answer.SetEvaluations(nil)

	if err := s.repo.Create(ctx, &answer); err != nil {
		return dto.AnswerResponse{}, err
	}

	s.logger.Info().Uint("answer_id", answer.ID).Msg("answer recorded")

	return dto.NewAnswerResponse(answer, false), nil
}

func (s *answerService) Update(ctx context.Context, id uint, payload dto.AnswerUpdateRequest) (dto.AnswerResponse, error) {
	answer, err := s.byID(ctx, id)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	if payload.AnswerText != nil {
		answer.AnswerText = *payload.AnswerText
	}

	if err := s.repo.Update(ctx, &answer); err != nil {
		return dto.AnswerResponse{}, err
	}

	rubrics, err := s.rubrics.ListByQuestion(ctx, answer.QuestionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	return dto.NewAnswerResponse(answer, grading.IsFullyGraded(rubrics, answer.EvaluationList())), nil
}

// Grade replaces the answer's evaluation set and recomputes the aggregate
// percentage over all rubrics of the question.
func (s *answerService) Grade(ctx context.Context, id uint, payload dto.AnswerGradeRequest) (dto.AnswerResponse, error) {
	ctx, span := s.tracer.Start(ctx, "answer.grade", trace.WithAttributes(
		attribute.Int64("answer_id", int64(id)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AnswerResponse{}, err
	}

	answer, err := s.byID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.AnswerResponse{}, err
	}

	rubrics, err := s.rubrics.ListByQuestion(ctx, answer.QuestionID)
	if err != nil {
		span.RecordError(err)
		return dto.AnswerResponse{}, err
	}

	evaluations := dto.ModelEvaluations(payload.Evaluations)
	if err := grading.ValidateEvaluations(rubrics, evaluations); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_evaluation")
		return dto.AnswerResponse{}, fmt.Errorf("%w: %v", ErrInvalidEvaluation, err)
	}

	answer.SetEvaluations(evaluations)
	answer.PointsPercentage = grading.AggregatePercentage(rubrics, evaluations)

	if err := s.repo.Update(ctx, &answer); err != nil {
		span.RecordError(err)
		return dto.AnswerResponse{}, err
	}

	graded := grading.IsFullyGraded(rubrics, evaluations)
	span.SetAttributes(
		attribute.Float64("points_percentage", answer.PointsPercentage),
		attribute.Bool("fully_graded", graded),
	)

	s.events.Publish(EventAnswerGraded, map[string]interface{}{
		"answer_id":         answer.ID,
		"submission_id":     answer.SubmissionID,
		"question_id":       answer.QuestionID,
		"points_percentage": answer.PointsPercentage,
		"fully_graded":      graded,
	})

	s.logger.Info().
		Uint("answer_id", answer.ID).
		Float64("points_percentage", answer.PointsPercentage).
		Bool("fully_graded", graded).
		Msg("answer graded")

	return dto.NewAnswerResponse(answer, graded), nil
}

func (s *answerService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnswerNotFound
		}
		return err
	}

	s.logger.Info().Uint("answer_id", id).Msg("answer deleted")
	return nil
}

func (s *answerService) byID(ctx context.Context, id uint) (models.Answer, error) {
	answer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Answer{}, ErrAnswerNotFound
		}
		return models.Answer{}, err
	}
	return answer, nil
}
