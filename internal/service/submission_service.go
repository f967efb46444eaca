package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/grading"
	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
)

// ErrSubmissionNotFound indicates the requested submission does not exist.
var ErrSubmissionNotFound = errors.New("submission not found")

// SubmissionService exposes submission domain use cases.
type SubmissionService interface {
	ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	GetWithAnswers(ctx context.Context, id uint) (dto.SubmissionWithAnswersResponse, error)
	Create(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Update(ctx context.Context, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error)
	Delete(ctx context.Context, id uint) error
}

type submissionService struct {
	repo        repository.SubmissionRepository
	answers     repository.AnswerRepository
	rubrics     repository.RubricRepository
	assignments repository.AssignmentRepository
	events      EventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService builds a new submission service.
func NewSubmissionService(
	repo repository.SubmissionRepository,
	answers repository.AnswerRepository,
	rubrics repository.RubricRepository,
	assignments repository.AssignmentRepository,
	events EventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		repo:        repo,
		answers:     answers,
		rubrics:     rubrics,
		assignments: assignments,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error) {
	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	submissions, err := s.repo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.byID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) GetWithAnswers(ctx context.Context, id uint) (dto.SubmissionWithAnswersResponse, error) {
	submission, err := s.byID(ctx, id)
	if err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	answers, err := s.answers.ListBySubmission(ctx, id)
	if err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	responses := make([]dto.AnswerResponse, 0, len(answers))
	for _, answer := range answers {
		rubrics, err := s.rubrics.ListByQuestion(ctx, answer.QuestionID)
		if err != nil {
			return dto.SubmissionWithAnswersResponse{}, err
		}
		graded := grading.IsFullyGraded(rubrics, answer.EvaluationList())
		responses = append(responses, dto.NewAnswerResponse(answer, graded))
	}

	return dto.SubmissionWithAnswersResponse{
		Submission: dto.NewSubmissionResponse(submission),
		Answers:    responses,
	}, nil
}

func (s *submissionService) Create(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if _, err := s.assignments.GetByID(ctx, payload.AssignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		AssignmentID:     payload.AssignmentID,
		StudentName:      payload.StudentName,
		StudentEmail:     payload.StudentEmail,
		ProcessingStatus: models.SubmissionStatusCompleted,
		SubmittedAt:      s.now(),
	}

	if err := s.repo.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Msg("submission recorded")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Update(ctx context.Context, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.byID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if payload.StudentName != nil {
		submission.StudentName = *payload.StudentName
	}

	if payload.StudentEmail != nil {
		submission.StudentEmail = *payload.StudentEmail
	}

	if err := s.repo.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.DeleteWithAnswers(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	s.events.Publish(EventSubmissionDeleted, map[string]interface{}{"submission_id": id})
	s.logger.Info().Uint("submission_id", id).Msg("submission and answers deleted")
	return nil
}

func (s *submissionService) byID(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}
