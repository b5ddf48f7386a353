package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/results"
)

func loadTestScenario(t *testing.T, file string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", file))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	for _, file := range []string{"single_image.yaml", "recharge.yaml", "campaign.yaml", "mode_conflict.yaml"} {
		t.Run(file, func(t *testing.T) {
			s := loadTestScenario(t, file)

			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Equal(t, s.Name, result.Scenario)
			assert.Equal(t, s.RunID, result.Results.RunID)

			hash, err := result.Results.Hash()
			require.NoError(t, err)
			assert.Equal(t, hash, result.Hash)
		})
	}
}

func TestRun_SingleImageGolden(t *testing.T) {
	s := loadTestScenario(t, "single_image.yaml")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_HashStableAcrossRuns(t *testing.T) {
	s := loadTestScenario(t, "campaign.yaml")

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestRun_ConflictHaltsRun(t *testing.T) {
	s := loadTestScenario(t, "mode_conflict.yaml")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, results.StatusFailed, result.Results.Status)
	assert.Contains(t, result.Results.Error, "CONFLICT")
}

func TestRun_FailingAssertionsReported(t *testing.T) {
	s := loadTestScenario(t, "single_image.yaml")
	s.Assertions = []Assertion{
		{Type: AssertTaskSpan, Directive: "img-1", End: "41s"},
		{Type: AssertResourceValue, Resource: "images", Value: 2},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "task_span")
	assert.Contains(t, result.Errors[1], "resource_value")
}

func TestRun_UnexpectedConflictFailsScenario(t *testing.T) {
	s := loadTestScenario(t, "mode_conflict.yaml")
	s.Assertions = []Assertion{{Type: AssertTaskCount, Activity: "Safe", Count: 1}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "run failed at")
}

func TestRun_StepQuota(t *testing.T) {
	s := loadTestScenario(t, "campaign.yaml")
	s.Assertions = []Assertion{{Type: AssertError, Contains: "exceeded max steps quota"}}

	result, err := New(WithMaxSteps(1)).Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_MissingModel(t *testing.T) {
	s := loadTestScenario(t, "single_image.yaml")
	s.Model = filepath.Join(t.TempDir(), "nothing")

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single-image")
}
