package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GenerateRubrics asks the model to draft grading criteria for a question.
func (c *Client) GenerateRubrics(ctx context.Context, input RubricGenerationInput) ([]GeneratedRubric, error) {
	model := c.model(input.Model)
	system := strings.TrimSpace(input.SystemPrompt)
	if system == "" {
		system = "You design grading rubrics for exam questions."
	}

	builder := strings.Builder{}
	builder.WriteString("# Question\n")
	builder.WriteString(input.QuestionText)
	if input.TotalPoints > 0 {
		builder.WriteString(fmt.Sprintf("\n\nThe assignment is worth %.0f points in total.", input.TotalPoints))
	}
	builder.WriteString("\n\nReturn one JSON object: {\"rubrics\": [{\"criteria_name\", \"levels\": [{\"name\", \"description\", \"percentage\"}]}]}. Order levels from weakest to strongest; percentage is the score in [0,100] a student earns at that level.")

	payload, err := c.completeJSON(ctx, "generate_rubrics", model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: builder.String()},
	})
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Rubrics []GeneratedRubric `json:"rubrics"`
	}
	if err := decodeValidated(rubricSchema, payload, &decoded); err != nil {
		return nil, fmt.Errorf("generate_rubrics: %w", err)
	}

	return decoded.Rubrics, nil
}

// ExtractQuestions asks the model to recover exam questions from document text.
func (c *Client) ExtractQuestions(ctx context.Context, input ExtractionInput) ([]ExtractedQuestion, error) {
	model := c.model(input.Model)
	system := strings.TrimSpace(input.SystemPrompt)
	if system == "" {
		system = "You extract exam questions from documents."
	}

	builder := strings.Builder{}
	builder.WriteString("# Document\n")
	builder.WriteString(input.DocumentText)
	builder.WriteString("\n\nReturn one JSON object: {\"questions\": [{\"question_number\", \"question_text\", \"points_percentage\"}]}. Keep the document's order and wording; points_percentage is each question's share of the total grade, summing to 100 when the document states point values.")

	payload, err := c.completeJSON(ctx, "extract_questions", model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: builder.String()},
	})
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Questions []ExtractedQuestion `json:"questions"`
	}
	if err := decodeValidated(extractionSchema, payload, &decoded); err != nil {
		return nil, fmt.Errorf("extract_questions: %w", err)
	}

	return decoded.Questions, nil
}
