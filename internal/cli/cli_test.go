package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlan(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	err := Execute(context.Background(), args, out, logs)
	if os.Getenv("SWEEPGRID_TEST_LOGS") == "true" {
		t.Logf("--- Log Output for %s ---\n%s", t.Name(), logs.String())
	}
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok, "expected *ExitError, got %T", err)
	return exitErr.Code
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sweepgrid version dev\n", out)
}

func TestPlanPrintsArrays(t *testing.T) {
	plan := writePlan(t, `loop "dci.A.temperature" { values = range(0, 20, 1) }`)

	out, err := execute(t, "plan", plan, "--log-format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "loop dci_ChanA_temperature")
	assert.Contains(t, out, "dci_ChanA_temperature_set")
	assert.Contains(t, out, "dci_ChanF_temperature")
	assert.Contains(t, out, "[21]")
}

func TestRunWritesResults(t *testing.T) {
	plan := writePlan(t, `loop "dci.A.temperature" { values = [1, 2, 3] }`)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "run", "--plan", plan, "--out", outDir, "--location", "cli/run", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "complete: 3 points, location cli/run")
	assert.FileExists(t, filepath.Join(outDir, "cli", "run", "snapshot.json"))
}

func TestExitCodes(t *testing.T) {
	badPlan := writePlan(t, `loop "dci.A.temperature" { values = "nope" }`)
	unknownRef := writePlan(t, `loop "dci.Q.temperature" { values = [1] }`)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "unknown flag", args: []string{"run", "--this-is-not-a-valid-flag"}, code: ExitUsage},
		{name: "missing plan", args: []string{"run"}, code: ExitUsage},
		{name: "bad log format", args: []string{"plan", badPlan, "--log-format", "xml"}, code: ExitUsage},
		{name: "invalid values", args: []string{"plan", badPlan}, code: ExitUsage},
		{name: "unknown reference", args: []string{"plan", unknownRef}, code: ExitUsage},
		{name: "missing station", args: []string{"plan", badPlan, "--station", "/does/not/exist.yaml"}, code: ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Equal(t, tt.code, exitCode(t, err))
		})
	}
}
