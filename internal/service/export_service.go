package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
)

// ExportService renders assignment grading results as CSV.
type ExportService interface {
	ExportCSV(ctx context.Context, assignmentID uint) (fileName string, data []byte, err error)
}

type exportService struct {
	assignments repository.AssignmentRepository
	questions   repository.QuestionRepository
	submissions repository.SubmissionRepository
	answers     repository.AnswerRepository
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewExportService builds a new CSV export service.
func NewExportService(
	assignments repository.AssignmentRepository,
	questions repository.QuestionRepository,
	submissions repository.SubmissionRepository,
	answers repository.AnswerRepository,
	logger zerolog.Logger,
) ExportService {
	return &exportService{
		assignments: assignments,
		questions:   questions,
		submissions: submissions,
		answers:     answers,
		logger:      logger.With().Str("component", "export_service").Logger(),
		tracer:      otel.Tracer("github.com/rubriq/rubriq-api/internal/service/export"),
	}
}

// ExportCSV materializes the full assignment dataset and emits one row per
// submission: student columns, an answer/points/feedback triple per question in
// question order, and a total points column.
func (s *exportService) ExportCSV(ctx context.Context, assignmentID uint) (string, []byte, error) {
	ctx, span := s.tracer.Start(ctx, "export.csv", trace.WithAttributes(
		attribute.Int64("assignment_id", int64(assignmentID)),
	))
	defer span.End()

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrAssignmentNotFound
		}
		return "", nil, err
	}

	questions, err := s.questions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return "", nil, err
	}

	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return "", nil, err
	}

	header := make([]string, 0, 3+3*len(questions)+1)
	header = append(header, "Student Name", "Student Email", "Submitted At")
	for i := range questions {
		n := i + 1
		header = append(header,
			fmt.Sprintf("Q%d Answer", n),
			fmt.Sprintf("Q%d Points", n),
			fmt.Sprintf("Q%d Feedback", n),
		)
	}
	header = append(header, "Total Points")

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return "", nil, err
	}

	for _, submission := range submissions {
		answers, err := s.answers.ListBySubmission(ctx, submission.ID)
		if err != nil {
			return "", nil, err
		}
		byQuestion := make(map[uint]models.Answer, len(answers))
		for _, answer := range answers {
			byQuestion[answer.QuestionID] = answer
		}

		row := make([]string, 0, len(header))
		row = append(row, submission.StudentName, submission.StudentEmail,
			submission.SubmittedAt.Format("2006-01-02 15:04:05"))

		total := 0.0
		for _, question := range questions {
			answer, ok := byQuestion[question.ID]
			if !ok {
				row = append(row, "", "0", "")
				continue
			}
			points := answer.PointsPercentage / 100 * question.PointsPercentage / 100 * assignment.TotalPoints
			total += points
			row = append(row, answer.AnswerText, formatPoints(points), answerFeedback(answer))
		}
		row = append(row, formatPoints(total))

		if err := writer.Write(row); err != nil {
			return "", nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", nil, err
	}

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Int("submissions", len(submissions)).
		Msg("assignment exported")

	fileName := fmt.Sprintf("%s-results.csv", slugify(assignment.Title))
	return fileName, buf.Bytes(), nil
}

// formatPoints trims trailing zeros so whole scores render as "10" not "10.00".
func formatPoints(points float64) string {
	return strconv.FormatFloat(points, 'f', -1, 64)
}

// answerFeedback joins the recorded per-criteria feedback into one cell.
func answerFeedback(answer models.Answer) string {
	evaluations := answer.EvaluationList()
	parts := make([]string, 0, len(evaluations))
	for _, evaluation := range evaluations {
		if feedback := strings.TrimSpace(evaluation.Feedback); feedback != "" {
			parts = append(parts, feedback)
		}
	}
	return strings.Join(parts, "\n")
}

func slugify(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	lastDash := true
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "assignment"
	}
	return slug
}
