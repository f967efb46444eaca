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

type rubricFixture struct {
	rubrics     *memoryRubricRepo
	questions   *memoryQuestionRepo
	assignments *memoryAssignmentRepo
	grader      *stubGrader
	service     RubricService

	question models.Question
}

func newRubricFixture(t *testing.T) *rubricFixture {
	t.Helper()
	ctx := context.Background()

	f := &rubricFixture{
		rubrics:     newMemoryRubricRepo(),
		questions:   newMemoryQuestionRepo(),
		assignments: newMemoryAssignmentRepo(),
		grader:      &stubGrader{},
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	settings := NewSettingsService(&memorySettingsRepo{}, validate, zerolog.Nop())
	f.service = NewRubricService(f.rubrics, f.questions, f.assignments, f.grader, settings, validate, zerolog.Nop())

	assignment := models.Assignment{Title: "Essay Exam", TotalPoints: 40}
	require.NoError(t, f.assignments.Create(ctx, &assignment))

	f.question = models.Question{AssignmentID: assignment.ID, QuestionText: "Argue for or against.", QuestionNumber: 1, PointsPercentage: 100}
	require.NoError(t, f.questions.Create(ctx, &f.question))

	return f
}

func TestGeneratePersistsDraftedRubrics(t *testing.T) {
	f := newRubricFixture(t)
	f.grader.generated = []ai.GeneratedRubric{
		{
			CriteriaName: "Thesis",
			Levels: []ai.GeneratedLevel{
				{Name: "Weak", Description: "no clear claim", Percentage: 0},
				{Name: "Strong", Description: "clear, defensible claim", Percentage: 100},
			},
		},
		{
			CriteriaName: "Evidence",
			Levels: []ai.GeneratedLevel{
				{Name: "Missing", Percentage: 0},
				{Name: "Present", Percentage: 100},
			},
		},
	}

	results, err := f.service.Generate(context.Background(), f.question.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Thesis", results[0].CriteriaName)
	require.Len(t, results[0].Levels, 2)
	require.Equal(t, "Strong", results[0].Levels[1].Name)

	stored, err := f.rubrics.ListByQuestion(context.Background(), f.question.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestGenerateUnknownQuestion(t *testing.T) {
	f := newRubricFixture(t)

	_, err := f.service.Generate(context.Background(), 999)
	require.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestGeneratePropagatesModelErrors(t *testing.T) {
	f := newRubricFixture(t)
	f.grader.generatedErr = ai.ErrMalformedResponse

	_, err := f.service.Generate(context.Background(), f.question.ID)
	require.ErrorIs(t, err, ai.ErrMalformedResponse)
}

func TestRubricCreateStoresOrderedLevels(t *testing.T) {
	f := newRubricFixture(t)

	created, err := f.service.Create(context.Background(), dto.RubricCreateRequest{
		QuestionID:   f.question.ID,
		CriteriaName: "Structure",
		Levels: []dto.RubricLevelPayload{
			{Name: "Rambling", Percentage: 0},
			{Name: "Organized", Percentage: 50},
			{Name: "Tight", Percentage: 100},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.Levels, 3)
	require.Equal(t, "Organized", created.Levels[1].Name)
	require.Equal(t, 100.0, created.Levels[2].Percentage)
}

func TestRubricCreateRequiresExistingQuestion(t *testing.T) {
	f := newRubricFixture(t)

	_, err := f.service.Create(context.Background(), dto.RubricCreateRequest{
		QuestionID:   999,
		CriteriaName: "Orphan",
		Levels:       []dto.RubricLevelPayload{{Name: "Only", Percentage: 100}},
	})
	require.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestRubricUpdateReplacesLevels(t *testing.T) {
	f := newRubricFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, dto.RubricCreateRequest{
		QuestionID:   f.question.ID,
		CriteriaName: "Style",
		Levels:       []dto.RubricLevelPayload{{Name: "Flat", Percentage: 0}},
	})
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, created.ID, dto.RubricUpdateRequest{
		Levels: []dto.RubricLevelPayload{
			{Name: "Flat", Percentage: 0},
			{Name: "Vivid", Percentage: 100},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Levels, 2)
	require.Equal(t, "Style", updated.CriteriaName)
}
