package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// SuggestEvaluations asks a grading agent to pick a rubric level and draft
// feedback for every criterion of one answer.
func (c *Client) SuggestEvaluations(ctx context.Context, input SuggestionInput) ([]Suggestion, error) {
	model := c.model(input.Model)
	system := strings.TrimSpace(input.SystemPrompt)
	if system == "" {
		system = "You are an experienced grader applying a rubric to a student's answer."
	}

	payload, err := c.completeJSON(ctx, "suggest", model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: buildSuggestionPrompt(input)},
	})
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	if err := decodeValidated(suggestionSchema, payload, &decoded); err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}

	for _, suggestion := range decoded.Suggestions {
		if suggestion.Justification == "" || suggestion.ImprovementSuggestion == "" {
			c.logger.Warn().
				Uint("rubric_id", suggestion.RubricID).
				Msg("suggestion returned with empty feedback fields")
		}
	}

	return decoded.Suggestions, nil
}

func buildSuggestionPrompt(input SuggestionInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Question\n")
	builder.WriteString(input.QuestionText)
	builder.WriteString("\n\n# Rubrics\n")
	for _, rubric := range input.Rubrics {
		builder.WriteString(fmt.Sprintf("## Rubric %d: %s\n", rubric.RubricID, rubric.CriteriaName))
		for i, name := range rubric.LevelNames {
			detail := ""
			if i < len(rubric.LevelDetails) {
				detail = rubric.LevelDetails[i]
			}
			builder.WriteString(fmt.Sprintf("- level %d: %s: %s\n", i, name, detail))
		}
	}

	if len(input.SiblingAnswers) > 0 {
		builder.WriteString("\n# Other students' answers (for calibration)\n")
		for _, sibling := range input.SiblingAnswers {
			builder.WriteString(fmt.Sprintf("## %s\n%s\n", sibling.StudentName, sibling.AnswerText))
		}
	}

	if len(input.PriorSuggestions) > 0 {
		builder.WriteString("\n# Your earlier suggestions (stay consistent)\n")
		for _, prior := range input.PriorSuggestions {
			builder.WriteString(fmt.Sprintf("- %s / %s: %s (%s)\n", prior.StudentName, prior.CriteriaName, prior.LevelName, prior.Feedback))
		}
	}

	if len(input.FullSubmission) > 0 {
		builder.WriteString("\n# The student's full submission (for context)\n")
		for _, part := range input.FullSubmission {
			builder.WriteString(fmt.Sprintf("## Q: %s\nA: %s\n", part.QuestionText, part.AnswerText))
		}
	}

	builder.WriteString("\n# Answer to evaluate\n")
	builder.WriteString(input.AnswerText)
	builder.WriteString("\n\nReturn one JSON object: {\"suggestions\": [{\"rubric_id\", \"suggested_level_index\", \"justification\", \"improvement_suggestion\"}]} with exactly one entry per rubric. justification states what the student did well, improvement_suggestion what to improve.")

	return builder.String()
}
