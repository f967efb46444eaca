package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/pkg/ai"
)

type parseFixture struct {
	svc         ParseService
	grader      *stubGrader
	events      *recordingPublisher
	submissions *memorySubmissionRepo
	answers     *memoryAnswerRepo
	questions   *memoryQuestionRepo
	assignments *memoryAssignmentRepo
}

func newParseFixture(t *testing.T) *parseFixture {
	t.Helper()

	answers := newMemoryAnswerRepo()
	submissions := newMemorySubmissionRepo(answers)
	questions := newMemoryQuestionRepo()
	assignments := newMemoryAssignmentRepo()
	grader := &stubGrader{}
	events := &recordingPublisher{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	settings := NewSettingsService(&memorySettingsRepo{}, validate, zerolog.Nop())
	extractor := NewTextExtractor(grader, 1, zerolog.Nop())

	svc := NewParseService(submissions, answers, questions, assignments, grader, settings, extractor, events, validate, zerolog.Nop())

	return &parseFixture{
		svc:         svc,
		grader:      grader,
		events:      events,
		submissions: submissions,
		answers:     answers,
		questions:   questions,
		assignments: assignments,
	}
}

func (f *parseFixture) addAssignment(t *testing.T, questionTexts ...string) uint {
	t.Helper()
	ctx := context.Background()

	assignment := models.Assignment{Title: "Networks Midterm", TotalPoints: 100}
	require.NoError(t, f.assignments.Create(ctx, &assignment))

	for i, text := range questionTexts {
		question := models.Question{
			AssignmentID:   assignment.ID,
			QuestionText:   text,
			QuestionNumber: i + 1,
		}
		require.NoError(t, f.questions.Create(ctx, &question))
	}

	return assignment.ID
}

func TestParseSingleQuestionUsesWholeTextWithoutModelCall(t *testing.T) {
	f := newParseFixture(t)
	assignmentID := f.addAssignment(t, "Describe the TCP handshake.")

	result, err := f.svc.ParseText(context.Background(), assignmentID, dto.SubmissionParseRequest{
		StudentName: "Dana",
		Text:        "  SYN, then SYN-ACK, then ACK.  ",
	})
	require.NoError(t, err)

	require.Equal(t, models.SubmissionStatusCompleted, result.Submission.ProcessingStatus)
	require.Len(t, result.Answers, 1)
	require.Equal(t, "SYN, then SYN-ACK, then ACK.", result.Answers[0].AnswerText)
	require.Equal(t, models.ConfidenceHigh, result.Answers[0].Confidence)
	require.Zero(t, f.grader.mapCalls)
	require.Equal(t, []string{EventSubmissionParsed}, f.events.subjects())
}

func TestParseMultiQuestionDelegatesToModel(t *testing.T) {
	f := newParseFixture(t)
	assignmentID := f.addAssignment(t, "Question one?", "Question two?")
	f.grader.mapped = []ai.MappedAnswer{
		{QuestionIndex: 0, AnswerText: "First answer", Confidence: models.ConfidenceHigh},
		{QuestionIndex: 1, AnswerText: "Second answer", Confidence: models.ConfidenceMedium},
	}

	result, err := f.svc.ParseText(context.Background(), assignmentID, dto.SubmissionParseRequest{
		StudentName: "Dana",
		Text:        "1. First answer 2. Second answer",
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.grader.mapCalls)
	require.Len(t, result.Answers, 2)
	require.Equal(t, models.ConfidenceMedium, result.Answers[1].Confidence)
}

func TestParseDiscardsMappingForUnknownQuestionIndex(t *testing.T) {
	f := newParseFixture(t)
	assignmentID := f.addAssignment(t, "Question one?", "Question two?")
	f.grader.mapped = []ai.MappedAnswer{
		{QuestionIndex: 0, AnswerText: "First answer", Confidence: models.ConfidenceHigh},
		{QuestionIndex: 7, AnswerText: "Phantom answer", Confidence: models.ConfidenceLow},
	}

	result, err := f.svc.ParseText(context.Background(), assignmentID, dto.SubmissionParseRequest{
		StudentName: "Dana",
		Text:        "some submission text",
	})
	require.NoError(t, err)
	require.Len(t, result.Answers, 1)
	require.Equal(t, "First answer", result.Answers[0].AnswerText)
}

func TestParseRejectsAssignmentWithoutQuestions(t *testing.T) {
	f := newParseFixture(t)
	assignmentID := f.addAssignment(t)

	_, err := f.svc.ParseText(context.Background(), assignmentID, dto.SubmissionParseRequest{
		StudentName: "Dana",
		Text:        "anything",
	})
	require.ErrorIs(t, err, ErrNoQuestions)
	require.Zero(t, f.grader.mapCalls)
}

func TestParseRejectsEmptyText(t *testing.T) {
	f := newParseFixture(t)
	assignmentID := f.addAssignment(t, "Only question?")

	_, err := f.svc.ParseText(context.Background(), assignmentID, dto.SubmissionParseRequest{
		StudentName: "Dana",
		Text:        "   ",
	})
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestParseUnknownAssignment(t *testing.T) {
	f := newParseFixture(t)

	_, err := f.svc.ParseText(context.Background(), 99, dto.SubmissionParseRequest{
		StudentName: "Dana",
		Text:        "anything",
	})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestParseMarksSubmissionFailedWhenMappingFails(t *testing.T) {
	f := newParseFixture(t)
	assignmentID := f.addAssignment(t, "Question one?", "Question two?")
	f.grader.mapErr = ai.ErrMalformedResponse

	_, err := f.svc.ParseText(context.Background(), assignmentID, dto.SubmissionParseRequest{
		StudentName: "Dana",
		Text:        "some text",
	})
	require.ErrorIs(t, err, ai.ErrMalformedResponse)

	submissions, listErr := f.submissions.ListByAssignment(context.Background(), assignmentID)
	require.NoError(t, listErr)
	require.Len(t, submissions, 1)
	require.Equal(t, models.SubmissionStatusFailed, submissions[0].ProcessingStatus)
}
