package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
	"github.com/rubriq/rubriq-api/pkg/ai"
)

// ErrQuestionNotFound indicates the requested question does not exist.
var ErrQuestionNotFound = errors.New("question not found")

// ErrEmptyDocument indicates an extraction source yielded no usable text.
var ErrEmptyDocument = errors.New("document contains no text")

// QuestionService exposes question domain use cases.
type QuestionService interface {
	ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, id uint) (dto.QuestionResponse, error)
	Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, id uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, id uint) error
	Extract(ctx context.Context, assignmentID uint, text string, file *multipart.FileHeader) ([]dto.QuestionResponse, error)
}

type questionService struct {
	repo        repository.QuestionRepository
	assignments repository.AssignmentRepository
	grader      ai.Grader
	settings    SettingsService
	extractor   *TextExtractor
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewQuestionService builds a new question service.
func NewQuestionService(
	repo repository.QuestionRepository,
	assignments repository.AssignmentRepository,
	grader ai.Grader,
	settings SettingsService,
	extractor *TextExtractor,
	validate *validator.Validate,
	logger zerolog.Logger,
) QuestionService {
	return &questionService{
		repo:        repo,
		assignments: assignments,
		grader:      grader,
		settings:    settings,
		extractor:   extractor,
		validator:   validate,
		logger:      logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.QuestionResponse, error) {
	if err := s.assignmentExists(ctx, assignmentID); err != nil {
		return nil, err
	}

	questions, err := s.repo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) Get(ctx context.Context, id uint) (dto.QuestionResponse, error) {
	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}

		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	if err := s.assignmentExists(ctx, payload.AssignmentID); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		AssignmentID:     payload.AssignmentID,
		QuestionText:     payload.QuestionText,
		QuestionNumber:   payload.QuestionNumber,
		PointsPercentage: payload.PointsPercentage,
	}

	if err := s.repo.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().Uint("question_id", question.ID).Uint("assignment_id", question.AssignmentID).Msg("question created")

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Update(ctx context.Context, id uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}

		return dto.QuestionResponse{}, err
	}

	if payload.QuestionText != nil {
		question.QuestionText = *payload.QuestionText
	}

	if payload.QuestionNumber != nil {
		question.QuestionNumber = *payload.QuestionNumber
	}

	if payload.PointsPercentage != nil {
		question.PointsPercentage = *payload.PointsPercentage
	}

	if err := s.repo.Update(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	s.logger.Info().Uint("question_id", id).Msg("question deleted")
	return nil
}

// Extract recovers exam questions from pasted text or an uploaded document and
// persists them against the assignment.
func (s *questionService) Extract(ctx context.Context, assignmentID uint, text string, file *multipart.FileHeader) ([]dto.QuestionResponse, error) {
	if err := s.assignmentExists(ctx, assignmentID); err != nil {
		return nil, err
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	document := strings.TrimSpace(text)
	if file != nil {
		document, err = s.extractor.ExtractFileText(ctx, file, settings)
		if err != nil {
			return nil, err
		}
	}

	if document == "" {
		return nil, ErrEmptyDocument
	}

	extracted, err := s.grader.ExtractQuestions(ctx, ai.ExtractionInput{
		Model:        settings.DefaultModel,
		SystemPrompt: settings.ExtractionPrompt,
		DocumentText: document,
	})
	if err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, len(extracted))
	for _, item := range extracted {
		questions = append(questions, models.Question{
			AssignmentID:     assignmentID,
			QuestionText:     item.QuestionText,
			QuestionNumber:   item.QuestionNumber,
			PointsPercentage: item.PointsPercentage,
		})
	}

	if err := s.repo.CreateBatch(ctx, questions); err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Int("questions", len(questions)).
		Msg("questions extracted from document")

	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) assignmentExists(ctx context.Context, assignmentID uint) error {
	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}
	return nil
}
