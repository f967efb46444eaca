package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// MapAnswers asks the model to partition free-form submission text into one
// answer per question, tagging each mapping with a confidence level.
func (c *Client) MapAnswers(ctx context.Context, input MappingInput) ([]MappedAnswer, error) {
	model := c.model(input.Model)
	system := strings.TrimSpace(input.SystemPrompt)
	if system == "" {
		system = "You match sections of a student's submission to exam questions."
	}

	builder := strings.Builder{}
	builder.WriteString("# Questions\n")
	for i, question := range input.Questions {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i, question))
	}
	builder.WriteString("\n# Submission text\n")
	builder.WriteString(input.Text)
	builder.WriteString("\n\nMap each section of the submission to the question it answers. Prefer explicit question numbering; fall back to keyword or semantic matching, then to positional order. Tag each mapping with confidence \"high\" (explicit numbering), \"medium\" (keyword/semantic match), or \"low\" (positional guess). Return one JSON object: {\"answers\": [{\"question_index\", \"answer_text\", \"confidence\"}]} using the zero-based question indices above. Omit questions with no matching text.")

	payload, err := c.completeJSON(ctx, "map_answers", model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: builder.String()},
	})
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Answers []MappedAnswer `json:"answers"`
	}
	if err := decodeValidated(mappingSchema, payload, &decoded); err != nil {
		return nil, fmt.Errorf("map_answers: %w", err)
	}

	return decoded.Answers, nil
}
