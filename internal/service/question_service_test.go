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

type questionFixture struct {
	questions   *memoryQuestionRepo
	assignments *memoryAssignmentRepo
	grader      *stubGrader
	service     QuestionService

	assignment models.Assignment
}

func newQuestionFixture(t *testing.T) *questionFixture {
	t.Helper()
	ctx := context.Background()

	f := &questionFixture{
		questions:   newMemoryQuestionRepo(),
		assignments: newMemoryAssignmentRepo(),
		grader:      &stubGrader{},
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	settings := NewSettingsService(&memorySettingsRepo{}, validate, zerolog.Nop())
	extractor := NewTextExtractor(f.grader, 1, zerolog.Nop())
	f.service = NewQuestionService(f.questions, f.assignments, f.grader, settings, extractor, validate, zerolog.Nop())

	f.assignment = models.Assignment{Title: "Algorithms Quiz", TotalPoints: 50}
	require.NoError(t, f.assignments.Create(ctx, &f.assignment))

	return f
}

func TestExtractPersistsModelQuestions(t *testing.T) {
	f := newQuestionFixture(t)
	f.grader.extracted = []ai.ExtractedQuestion{
		{QuestionNumber: 1, QuestionText: "Describe quicksort.", PointsPercentage: 60},
		{QuestionNumber: 2, QuestionText: "State its worst case.", PointsPercentage: 40},
	}

	results, err := f.service.Extract(context.Background(), f.assignment.ID, "1. Describe quicksort. 2. State its worst case.", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Describe quicksort.", results[0].QuestionText)
	require.Equal(t, 2, results[1].QuestionNumber)

	stored, err := f.questions.ListByAssignment(context.Background(), f.assignment.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestExtractRejectsEmptyDocument(t *testing.T) {
	f := newQuestionFixture(t)

	_, err := f.service.Extract(context.Background(), f.assignment.ID, "   ", nil)
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractUnknownAssignment(t *testing.T) {
	f := newQuestionFixture(t)

	_, err := f.service.Extract(context.Background(), 999, "some text", nil)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestQuestionCreateRequiresExistingAssignment(t *testing.T) {
	f := newQuestionFixture(t)

	_, err := f.service.Create(context.Background(), dto.QuestionCreateRequest{
		AssignmentID:     999,
		QuestionText:     "Orphan question",
		QuestionNumber:   1,
		PointsPercentage: 100,
	})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestQuestionUpdateMergesProvidedFields(t *testing.T) {
	f := newQuestionFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, dto.QuestionCreateRequest{
		AssignmentID:     f.assignment.ID,
		QuestionText:     "Original text",
		QuestionNumber:   1,
		PointsPercentage: 100,
	})
	require.NoError(t, err)

	text := "Clarified text"
	updated, err := f.service.Update(ctx, created.ID, dto.QuestionUpdateRequest{QuestionText: &text})
	require.NoError(t, err)
	require.Equal(t, text, updated.QuestionText)
	require.Equal(t, 1, updated.QuestionNumber)
}
