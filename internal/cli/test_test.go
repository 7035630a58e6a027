package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := execute(t, "test", "--format", "json", t.TempDir())
	require.NoError(t, err)

	resp := decode[TestResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ filter_cascade")
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, "test", "--format", "json", "--filter", "export_*", harnessScenarios)
	require.NoError(t, err)

	resp := decode[TestResult](t, out)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "export_read_only", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	goldenDir := t.TempDir()

	out, err := execute(t, "test", "--update", "--golden-dir", goldenDir, "--filter", "auto_export", harnessScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	written, err := os.ReadFile(filepath.Join(goldenDir, "auto_export.golden"))
	require.NoError(t, err)
	checkedIn, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "auto_export.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(checkedIn), string(written))

	_, err = execute(t, "test", "--golden-dir", goldenDir, "--filter", "auto_export", harnessScenarios)
	require.NoError(t, err)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	goldenDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(goldenDir, "filter_cascade.golden"), []byte("{}\n"), 0644))

	out, err := execute(t, "test", "--golden-dir", goldenDir, "--filter", "filter_cascade", harnessScenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	lib, err := filepath.Abs(filepath.Join("..", "harness", "testdata", "fixtures", "library.yaml"))
	require.NoError(t, err)
	scenario := `name: wrong_count
description: expects too many rows
library: ` + lib + `
assertions:
  - {type: row_count, count: 99}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_count.yaml"), []byte(scenario), 0644))

	out, err := execute(t, "test", "--format", "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode[TestResult](t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "Expected: 99 rows")
}
