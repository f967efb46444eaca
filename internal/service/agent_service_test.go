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

type agentFixture struct {
	agents      *memoryAgentRepo
	questions   *memoryQuestionRepo
	rubrics     *memoryRubricRepo
	answers     *memoryAnswerRepo
	submissions *memorySubmissionRepo
	grader      *stubGrader
	service     AgentService

	question   models.Question
	rubric     models.Rubric
	submission models.Submission
	answer     models.Answer
	agent      models.GradingAgent
}

func newAgentFixture(t *testing.T) *agentFixture {
	t.Helper()
	ctx := context.Background()

	f := &agentFixture{
		agents:    newMemoryAgentRepo(),
		questions: newMemoryQuestionRepo(),
		rubrics:   newMemoryRubricRepo(),
		answers:   newMemoryAnswerRepo(),
		grader:    &stubGrader{},
	}
	f.submissions = newMemorySubmissionRepo(f.answers)

	validate := validator.New(validator.WithRequiredStructEnabled())
	settings := NewSettingsService(&memorySettingsRepo{}, validate, zerolog.Nop())
	f.service = NewAgentService(f.agents, f.questions, f.rubrics, f.answers, f.submissions, f.grader, settings, validate, zerolog.Nop())

	f.question = models.Question{AssignmentID: 1, QuestionText: "Explain TCP slow start.", QuestionNumber: 1, PointsPercentage: 100}
	require.NoError(t, f.questions.Create(ctx, &f.question))

	f.rubric = models.Rubric{QuestionID: f.question.ID, CriteriaName: "Accuracy"}
	f.rubric.SetLevels([]models.RubricLevel{
		{Name: "Poor", Description: "mostly wrong", Percentage: 0},
		{Name: "Good", Description: "mostly right", Percentage: 100},
	})
	require.NoError(t, f.rubrics.Create(ctx, &f.rubric))

	f.submission = models.Submission{AssignmentID: 1, StudentName: "Ada"}
	require.NoError(t, f.submissions.Create(ctx, &f.submission))

	f.answer = models.Answer{SubmissionID: f.submission.ID, QuestionID: f.question.ID, AnswerText: "It doubles cwnd each RTT."}
	require.NoError(t, f.answers.Create(ctx, &f.answer))

	f.agent = models.GradingAgent{QuestionID: f.question.ID, Name: "Strict", Model: "gpt-4o"}
	require.NoError(t, f.agents.Create(ctx, &f.agent))

	return f
}

func TestSuggestReturnsInRangeSuggestions(t *testing.T) {
	f := newAgentFixture(t)
	f.grader.suggestions = []ai.Suggestion{
		{RubricID: f.rubric.ID, SuggestedLevelIndex: 1, Justification: "covers the mechanism", ImprovementSuggestion: "mention ssthresh"},
	}

	resp, err := f.service.Suggest(context.Background(), f.agent.ID, dto.AgentSuggestRequest{AnswerID: f.answer.ID})
	require.NoError(t, err)
	require.Equal(t, f.agent.ID, resp.AgentID)
	require.Equal(t, f.answer.ID, resp.AnswerID)
	require.Len(t, resp.Suggestions, 1)
	require.Equal(t, 1, resp.Suggestions[0].SuggestedLevelIndex)
	require.Equal(t, "covers the mechanism", resp.Suggestions[0].Justification)

	require.Len(t, f.grader.suggestInputs, 1)
	input := f.grader.suggestInputs[0]
	require.Equal(t, "gpt-4o", input.Model)
	require.Equal(t, f.question.QuestionText, input.QuestionText)
	require.Equal(t, f.answer.AnswerText, input.AnswerText)
	require.Len(t, input.Rubrics, 1)
	require.Equal(t, []string{"Poor", "Good"}, input.Rubrics[0].LevelNames)
}

func TestSuggestDiscardsOutOfRangeLevelIndex(t *testing.T) {
	f := newAgentFixture(t)
	f.grader.suggestions = []ai.Suggestion{
		{RubricID: f.rubric.ID, SuggestedLevelIndex: 5},
		{RubricID: f.rubric.ID + 99, SuggestedLevelIndex: 0},
		{RubricID: f.rubric.ID, SuggestedLevelIndex: 0, Justification: "kept"},
	}

	resp, err := f.service.Suggest(context.Background(), f.agent.ID, dto.AgentSuggestRequest{AnswerID: f.answer.ID})
	require.NoError(t, err)
	require.Len(t, resp.Suggestions, 1)
	require.Equal(t, "kept", resp.Suggestions[0].Justification)
}

func TestSuggestRejectsAnswerFromAnotherQuestion(t *testing.T) {
	f := newAgentFixture(t)
	ctx := context.Background()

	other := models.Question{AssignmentID: 1, QuestionText: "Other", QuestionNumber: 2, PointsPercentage: 100}
	require.NoError(t, f.questions.Create(ctx, &other))
	stray := models.Answer{SubmissionID: f.submission.ID, QuestionID: other.ID, AnswerText: "off topic"}
	require.NoError(t, f.answers.Create(ctx, &stray))

	_, err := f.service.Suggest(ctx, f.agent.ID, dto.AgentSuggestRequest{AnswerID: stray.ID})
	require.ErrorIs(t, err, ErrAnswerNotFound)
}

func TestSuggestPropagatesModelErrors(t *testing.T) {
	f := newAgentFixture(t)
	f.grader.suggestErr = ai.ErrMalformedResponse

	_, err := f.service.Suggest(context.Background(), f.agent.ID, dto.AgentSuggestRequest{AnswerID: f.answer.ID})
	require.ErrorIs(t, err, ai.ErrMalformedResponse)
}

func TestSuggestAttachesSiblingAndPriorFeedbackContext(t *testing.T) {
	f := newAgentFixture(t)
	ctx := context.Background()

	peer := models.Submission{AssignmentID: 1, StudentName: "Grace"}
	require.NoError(t, f.submissions.Create(ctx, &peer))
	sibling := models.Answer{SubmissionID: peer.ID, QuestionID: f.question.ID, AnswerText: "Exponential growth phase."}
	sibling.SetEvaluations([]models.CriteriaEvaluation{{RubricID: f.rubric.ID, SelectedLevelIndex: 1, Feedback: "solid"}})
	require.NoError(t, f.answers.Create(ctx, &sibling))

	_, err := f.service.Suggest(ctx, f.agent.ID, dto.AgentSuggestRequest{
		AnswerID:             f.answer.ID,
		IncludeSiblings:      true,
		IncludePriorFeedback: true,
	})
	require.NoError(t, err)

	require.Len(t, f.grader.suggestInputs, 1)
	input := f.grader.suggestInputs[0]
	require.Len(t, input.SiblingAnswers, 1)
	require.Equal(t, "Grace", input.SiblingAnswers[0].StudentName)
	require.Len(t, input.PriorSuggestions, 1)
	require.Equal(t, "Good", input.PriorSuggestions[0].LevelName)
	require.Equal(t, "solid", input.PriorSuggestions[0].Feedback)
}

func TestSuggestAttachesFullSubmissionContext(t *testing.T) {
	f := newAgentFixture(t)
	ctx := context.Background()

	other := models.Question{AssignmentID: 1, QuestionText: "Define RTT.", QuestionNumber: 2, PointsPercentage: 100}
	require.NoError(t, f.questions.Create(ctx, &other))
	second := models.Answer{SubmissionID: f.submission.ID, QuestionID: other.ID, AnswerText: "Round trip time."}
	require.NoError(t, f.answers.Create(ctx, &second))

	_, err := f.service.Suggest(ctx, f.agent.ID, dto.AgentSuggestRequest{
		AnswerID:              f.answer.ID,
		IncludeFullSubmission: true,
	})
	require.NoError(t, err)

	require.Len(t, f.grader.suggestInputs, 1)
	require.Len(t, f.grader.suggestInputs[0].FullSubmission, 2)
}

func TestCreateAgentRejectsDuplicateNamePerQuestion(t *testing.T) {
	f := newAgentFixture(t)

	_, err := f.service.Create(context.Background(), dto.AgentCreateRequest{
		QuestionID: f.question.ID,
		Name:       "Strict",
		Model:      "gpt-4o-mini",
	})
	require.ErrorIs(t, err, ErrDuplicateAgent)
}

func TestCreateAgentRequiresExistingQuestion(t *testing.T) {
	f := newAgentFixture(t)

	_, err := f.service.Create(context.Background(), dto.AgentCreateRequest{
		QuestionID: 999,
		Name:       "Lenient",
		Model:      "gpt-4o",
	})
	require.ErrorIs(t, err, ErrQuestionNotFound)
}
