package grading

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rubriq/rubriq-api/internal/models"
)

func makeRubric(id uint, name string, levels []models.RubricLevel) models.Rubric {
	rubric := models.Rubric{ID: id, CriteriaName: name}
	rubric.SetLevels(levels)
	return rubric
}

func TestAggregatePercentageMeanOfSelections(t *testing.T) {
	rubrics := []models.Rubric{
		makeRubric(1, "Clarity", []models.RubricLevel{
			{Name: "Poor", Percentage: 0},
			{Name: "Fair", Percentage: 50},
			{Name: "Good", Percentage: 100},
		}),
		makeRubric(2, "Accuracy", []models.RubricLevel{
			{Name: "Poor", Percentage: 0},
			{Name: "Good", Percentage: 100},
		}),
	}

	evaluations := []models.CriteriaEvaluation{
		{RubricID: 1, SelectedLevelIndex: 2},
		{RubricID: 2, SelectedLevelIndex: 0},
	}

	require.InDelta(t, 50.0, AggregatePercentage(rubrics, evaluations), 1e-9)
}

func TestAggregatePercentageNoRubrics(t *testing.T) {
	require.Zero(t, AggregatePercentage(nil, []models.CriteriaEvaluation{{RubricID: 1}}))
}

func TestAggregatePercentagePartialGradingDividesByRubricCount(t *testing.T) {
	rubrics := []models.Rubric{
		makeRubric(1, "Clarity", []models.RubricLevel{{Name: "Good", Percentage: 100}}),
		makeRubric(2, "Accuracy", []models.RubricLevel{{Name: "Good", Percentage: 100}}),
	}

	evaluations := []models.CriteriaEvaluation{{RubricID: 1, SelectedLevelIndex: 0}}

	require.InDelta(t, 50.0, AggregatePercentage(rubrics, evaluations), 1e-9)
	require.False(t, IsFullyGraded(rubrics, evaluations))
}

func TestAggregatePercentageStaysInRange(t *testing.T) {
	rubrics := []models.Rubric{
		makeRubric(1, "Depth", []models.RubricLevel{
			{Name: "Weak", Percentage: 25},
			{Name: "Strong", Percentage: 75},
		}),
		makeRubric(2, "Style", []models.RubricLevel{
			{Name: "Weak", Percentage: 40},
			{Name: "Strong", Percentage: 90},
		}),
		makeRubric(3, "Rigor", []models.RubricLevel{
			{Name: "Weak", Percentage: 10},
			{Name: "Strong", Percentage: 100},
		}),
	}

	evaluations := []models.CriteriaEvaluation{
		{RubricID: 1, SelectedLevelIndex: 1},
		{RubricID: 2, SelectedLevelIndex: 1},
		{RubricID: 3, SelectedLevelIndex: 1},
	}

	got := AggregatePercentage(rubrics, evaluations)
	require.GreaterOrEqual(t, got, 0.0)
	require.LessOrEqual(t, got, 100.0)
	require.InDelta(t, (75.0+90.0+100.0)/3.0, got, 1e-9)
	require.True(t, IsFullyGraded(rubrics, evaluations))
}

func TestAggregatePercentageIgnoresInvalidSelections(t *testing.T) {
	rubrics := []models.Rubric{
		makeRubric(1, "Clarity", []models.RubricLevel{{Name: "Good", Percentage: 100}}),
	}

	evaluations := []models.CriteriaEvaluation{
		{RubricID: 1, SelectedLevelIndex: 5},
		{RubricID: 9, SelectedLevelIndex: 0},
	}

	require.Zero(t, AggregatePercentage(rubrics, evaluations))
}

func TestValidateEvaluations(t *testing.T) {
	rubrics := []models.Rubric{
		makeRubric(1, "Clarity", []models.RubricLevel{
			{Name: "Poor", Percentage: 0},
			{Name: "Good", Percentage: 100},
		}),
	}

	require.NoError(t, ValidateEvaluations(rubrics, []models.CriteriaEvaluation{{RubricID: 1, SelectedLevelIndex: 1}}))
	require.Error(t, ValidateEvaluations(rubrics, []models.CriteriaEvaluation{{RubricID: 2, SelectedLevelIndex: 0}}))
	require.Error(t, ValidateEvaluations(rubrics, []models.CriteriaEvaluation{{RubricID: 1, SelectedLevelIndex: 2}}))
	require.Error(t, ValidateEvaluations(rubrics, []models.CriteriaEvaluation{
		{RubricID: 1, SelectedLevelIndex: 0},
		{RubricID: 1, SelectedLevelIndex: 1},
	}))
}
