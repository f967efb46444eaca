package grading

import (
	"fmt"

	"github.com/rubriq/rubriq-api/internal/models"
)

// AggregatePercentage computes an answer's overall score from its rubric-level
// selections. The denominator is the total number of rubrics for the question,
// so criteria without a selection weigh in as zero. Selections referencing an
// unknown rubric are ignored. Returns 0 when the question has no rubrics.
func AggregatePercentage(rubrics []models.Rubric, evaluations []models.CriteriaEvaluation) float64 {
	if len(rubrics) == 0 {
		return 0
	}

	byID := make(map[uint]models.Rubric, len(rubrics))
	for _, rubric := range rubrics {
		byID[rubric.ID] = rubric
	}

	total := 0.0
	for _, evaluation := range evaluations {
		rubric, ok := byID[evaluation.RubricID]
		if !ok {
			continue
		}
		levels := rubric.LevelList()
		if evaluation.SelectedLevelIndex < 0 || evaluation.SelectedLevelIndex >= len(levels) {
			continue
		}
		total += levels[evaluation.SelectedLevelIndex].Percentage
	}

	return total / float64(len(rubrics))
}

// IsFullyGraded reports whether every rubric has exactly one valid selection.
func IsFullyGraded(rubrics []models.Rubric, evaluations []models.CriteriaEvaluation) bool {
	if len(rubrics) == 0 {
		return false
	}

	seen := make(map[uint]bool, len(evaluations))
	for _, evaluation := range evaluations {
		seen[evaluation.RubricID] = true
	}

	for _, rubric := range rubrics {
		if !seen[rubric.ID] {
			return false
		}
	}

	return true
}

// ValidateEvaluations rejects selections that reference an unknown rubric, an
// out-of-range level index, or the same rubric twice.
func ValidateEvaluations(rubrics []models.Rubric, evaluations []models.CriteriaEvaluation) error {
	byID := make(map[uint]models.Rubric, len(rubrics))
	for _, rubric := range rubrics {
		byID[rubric.ID] = rubric
	}

	seen := make(map[uint]bool, len(evaluations))
	for _, evaluation := range evaluations {
		rubric, ok := byID[evaluation.RubricID]
		if !ok {
			return fmt.Errorf("unknown rubric %d", evaluation.RubricID)
		}
		if seen[evaluation.RubricID] {
			return fmt.Errorf("duplicate evaluation for rubric %d", evaluation.RubricID)
		}
		seen[evaluation.RubricID] = true

		levels := rubric.LevelList()
		if evaluation.SelectedLevelIndex < 0 || evaluation.SelectedLevelIndex >= len(levels) {
			return fmt.Errorf("level index %d out of range for rubric %d", evaluation.SelectedLevelIndex, evaluation.RubricID)
		}
	}

	return nil
}
