package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
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

var (
	// ErrNoQuestions indicates the assignment has no questions to map answers onto.
	ErrNoQuestions = errors.New("assignment has no questions")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

// visionMIMETypes are handed to the vision model; everything else allowed is
// read as plain text.
var visionMIMETypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

var textMIMEPrefixes = []string{"text/"}

// TextExtractor turns an uploaded file into plain text, sniffing the real
// content type and delegating PDFs and images to the vision model.
type TextExtractor struct {
	grader    ai.Grader
	sanitizer *bluemonday.Policy
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewTextExtractor builds the shared upload-to-text helper.
func NewTextExtractor(grader ai.Grader, maxSizeMB int, logger zerolog.Logger) *TextExtractor {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &TextExtractor{
		grader:    grader,
		sanitizer: bluemonday.StrictPolicy(),
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		logger:    logger.With().Str("component", "text_extractor").Logger(),
		tracer:    otel.Tracer("github.com/rubriq/rubriq-api/internal/service/extract"),
	}
}

// ExtractFileText reads the upload, sniffs its type, and returns sanitized text.
func (e *TextExtractor) ExtractFileText(ctx context.Context, file *multipart.FileHeader, settings models.Settings) (string, error) {
	if file.Size > e.maxSize {
		return "", ErrUploadTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, e.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return e.ExtractData(ctx, file.Filename, data, settings)
}

// ExtractData sniffs buffered file bytes and returns sanitized text. Batch
// workers use this directly since multipart headers do not outlive the request.
func (e *TextExtractor) ExtractData(ctx context.Context, fileName string, data []byte, settings models.Settings) (string, error) {
	ctx, span := e.tracer.Start(ctx, "extract.file_text", trace.WithAttributes(
		attribute.String("file_name", fileName),
		attribute.Int("file_size", len(data)),
	))
	defer span.End()

	if int64(len(data)) > e.maxSize {
		span.SetStatus(codes.Error, "too_large")
		return "", ErrUploadTooLarge
	}

	detected := mimetype.Detect(data)
	span.SetAttributes(attribute.String("mime_type", detected.String()))

	switch {
	case visionMIMETypes[detected.String()]:
		if !settings.VisionExtraction {
			return "", fmt.Errorf("%w: vision extraction disabled", ErrUploadTypeNotAllowed)
		}
		text, err := e.grader.ExtractText(ctx, ai.VisionInput{
			Model:    settings.VisionModel,
			MIMEType: detected.String(),
			Data:     data,
		})
		if err != nil {
			span.RecordError(err)
			return "", err
		}
		return strings.TrimSpace(text), nil
	case isTextMIME(detected.String()):
		return e.SanitizeText(string(data)), nil
	default:
		e.logger.Warn().Str("mime_type", detected.String()).Str("file_name", fileName).Msg("rejected upload type")
		span.SetStatus(codes.Error, "type_not_allowed")
		return "", ErrUploadTypeNotAllowed
	}
}

// SanitizeText strips any markup from pasted or extracted text.
func (e *TextExtractor) SanitizeText(text string) string {
	return strings.TrimSpace(e.sanitizer.Sanitize(text))
}

func isTextMIME(mime string) bool {
	for _, prefix := range textMIMEPrefixes {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}

// ParseService turns submission text or files into a Submission with
// per-question Answers.
type ParseService interface {
	ParseText(ctx context.Context, assignmentID uint, payload dto.SubmissionParseRequest) (dto.SubmissionWithAnswersResponse, error)
	ParseFile(ctx context.Context, assignmentID uint, studentName, studentEmail string, file *multipart.FileHeader) (dto.SubmissionWithAnswersResponse, error)
	ParseUpload(ctx context.Context, assignmentID uint, studentName, fileName string, data []byte) (dto.SubmissionWithAnswersResponse, error)
}

type parseService struct {
	submissions repository.SubmissionRepository
	answers     repository.AnswerRepository
	questions   repository.QuestionRepository
	assignments repository.AssignmentRepository
	grader      ai.Grader
	settings    SettingsService
	extractor   *TextExtractor
	events      EventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewParseService builds a new submission parsing service.
func NewParseService(
	submissions repository.SubmissionRepository,
	answers repository.AnswerRepository,
	questions repository.QuestionRepository,
	assignments repository.AssignmentRepository,
	grader ai.Grader,
	settings SettingsService,
	extractor *TextExtractor,
	events EventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) ParseService {
	return &parseService{
		submissions: submissions,
		answers:     answers,
		questions:   questions,
		assignments: assignments,
		grader:      grader,
		settings:    settings,
		extractor:   extractor,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "parse_service").Logger(),
		tracer:      otel.Tracer("github.com/rubriq/rubriq-api/internal/service/parse"),
		now:         time.Now,
	}
}

func (s *parseService) ParseText(ctx context.Context, assignmentID uint, payload dto.SubmissionParseRequest) (dto.SubmissionWithAnswersResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	text := s.extractor.SanitizeText(payload.Text)
	return s.parse(ctx, assignmentID, payload.StudentName, payload.StudentEmail, "", text)
}

func (s *parseService) ParseFile(ctx context.Context, assignmentID uint, studentName, studentEmail string, file *multipart.FileHeader) (dto.SubmissionWithAnswersResponse, error) {
	if err := s.validator.Var(studentName, "required,max=255"); err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}
	if studentEmail != "" {
		if err := s.validator.Var(studentEmail, "email"); err != nil {
			return dto.SubmissionWithAnswersResponse{}, err
		}
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	text, err := s.extractor.ExtractFileText(ctx, file, settings)
	if err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	return s.parse(ctx, assignmentID, studentName, studentEmail, file.Filename, text)
}

// ParseUpload processes buffered file bytes on behalf of a batch worker.
func (s *parseService) ParseUpload(ctx context.Context, assignmentID uint, studentName, fileName string, data []byte) (dto.SubmissionWithAnswersResponse, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	text, err := s.extractor.ExtractData(ctx, fileName, data, settings)
	if err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	return s.parse(ctx, assignmentID, studentName, "", fileName, text)
}

func (s *parseService) parse(ctx context.Context, assignmentID uint, studentName, studentEmail, fileName, text string) (dto.SubmissionWithAnswersResponse, error) {
	ctx, span := s.tracer.Start(ctx, "parse.submission", trace.WithAttributes(
		attribute.Int64("assignment_id", int64(assignmentID)),
	))
	defer span.End()

	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionWithAnswersResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionWithAnswersResponse{}, err
	}

	questions, err := s.questions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}
	if len(questions) == 0 {
		span.SetStatus(codes.Error, "no_questions")
		return dto.SubmissionWithAnswersResponse{}, ErrNoQuestions
	}

	text = strings.TrimSpace(text)
	if text == "" {
		span.SetStatus(codes.Error, "empty_text")
		return dto.SubmissionWithAnswersResponse{}, ErrEmptyDocument
	}

	submission := models.Submission{
		AssignmentID:     assignmentID,
		StudentName:      studentName,
		StudentEmail:     studentEmail,
		SourceFileName:   fileName,
		ProcessingStatus: models.SubmissionStatusProcessing,
		SubmittedAt:      s.now(),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	answers, err := s.mapAnswers(ctx, submission.ID, questions, text)
	if err != nil {
		submission.ProcessingStatus = models.SubmissionStatusFailed
		if updateErr := s.submissions.Update(ctx, &submission); updateErr != nil {
			s.logger.Error().Err(updateErr).Uint("submission_id", submission.ID).Msg("failed to mark submission failed")
		}
		span.RecordError(err)
		return dto.SubmissionWithAnswersResponse{}, err
	}

	if err := s.answers.CreateBatch(ctx, answers); err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	submission.ProcessingStatus = models.SubmissionStatusCompleted
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionWithAnswersResponse{}, err
	}

	s.events.Publish(EventSubmissionParsed, map[string]interface{}{
		"submission_id": submission.ID,
		"assignment_id": assignmentID,
		"answers":       len(answers),
	})

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Int("answers", len(answers)).
		Msg("submission parsed")

	responses := make([]dto.AnswerResponse, 0, len(answers))
	for _, answer := range answers {
		responses = append(responses, dto.NewAnswerResponse(answer, false))
	}

	return dto.SubmissionWithAnswersResponse{
		Submission: dto.NewSubmissionResponse(submission),
		Answers:    responses,
	}, nil
}

// mapAnswers partitions submission text into per-question answers. A
// single-question assignment takes the whole text verbatim with high
// confidence and never calls the model.
func (s *parseService) mapAnswers(ctx context.Context, submissionID uint, questions []models.Question, text string) ([]models.Answer, error) {
	if len(questions) == 1 {
		answer := models.Answer{
			SubmissionID: submissionID,
			QuestionID:   questions[0].ID,
			AnswerText:   text,
			Confidence:   models.ConfidenceHigh,
		}
		answer.SetEvaluations(nil)
		return []models.Answer{answer}, nil
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	questionTexts := make([]string, 0, len(questions))
	for _, question := range questions {
		questionTexts = append(questionTexts, question.QuestionText)
	}

	mapped, err := s.grader.MapAnswers(ctx, ai.MappingInput{
		Model:        settings.DefaultModel,
		SystemPrompt: settings.MappingPrompt,
		Text:         text,
		Questions:    questionTexts,
	})
	if err != nil {
		return nil, err
	}

	answers := make([]models.Answer, 0, len(mapped))
	for _, item := range mapped {
		if item.QuestionIndex < 0 || item.QuestionIndex >= len(questions) {
			s.logger.Warn().Int("question_index", item.QuestionIndex).Msg("discarding mapping for unknown question")
			continue
		}
		answer := models.Answer{
			SubmissionID: submissionID,
			QuestionID:   questions[item.QuestionIndex].ID,
			AnswerText:   strings.TrimSpace(item.AnswerText),
			Confidence:   item.Confidence,
		}
		answer.SetEvaluations(nil)
		answers = append(answers, answer)
	}

	return answers, nil
}
