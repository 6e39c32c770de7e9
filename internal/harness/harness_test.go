package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScenarioFile(t *testing.T, name string) *Result {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", name))
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)
	return result
}

func TestSessionLifecycleScenario(t *testing.T) {
	result := runScenarioFile(t, "session_lifecycle.yaml")
	assert.True(t, result.Passed, "failures: %v", result.Failures)
}

func TestCategoryLinksScenario(t *testing.T) {
	result := runScenarioFile(t, "category_links.yaml")
	assert.True(t, result.Passed, "failures: %v", result.Failures)
}

func TestRun_DeterministicLog(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "session_lifecycle.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Log, second.Log, "same scenario must produce the same log")
}

func TestRun_UnexpectedErrorFailsStep(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "bad-stop",
		Description: "stopping an unknown session fails the step",
		User:        "u1",
		Flow: []Step{
			{Action: "session.stop", Args: map[string]interface{}{"id": "nope"}},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "unexpected error")
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "missing-error",
		Description: "a step expecting an error fails when the action succeeds",
		User:        "u1",
		Flow: []Step{
			{
				Action: "category.create",
				Args:   map[string]interface{}{"name": "Work", "color": "#333333", "icon": "W"},
				Expect: "schema_violation",
			},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Failures[0], "expected schema_violation error, got success")
}

func TestRun_UnknownActionInSetup(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "unknown-action",
		Description: "unknown actions abort the run",
		User:        "u1",
		Setup:       []Step{{Action: "category.explode"}},
		Flow:        []Step{{Action: "ui.filter_mode", Args: map[string]interface{}{"mode": "AND"}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestLoadScenario_RejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	body := `
name: typo
description: assertion is misspelled
flow:
  - action: ui.filter_mode
    args: { mode: AND }
assertion:
  - type: log_contains
    event: v1.UiStateSet
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_RequiresFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	body := `
name: empty
description: no flow steps
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow list is required")
}
