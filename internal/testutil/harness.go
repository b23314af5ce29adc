package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/sweepgrid/internal/app"
	"github.com/specialistvlad/sweepgrid/internal/hclplan"
	"github.com/specialistvlad/sweepgrid/internal/loop"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	Result    *loop.Result
	Dir       string // temporary root holding the plan, station and output
}

// OutDir is where the run wrote its result collections.
func (r *HarnessResult) OutDir() string { return filepath.Join(r.Dir, "out") }

// RunIntegrationTest writes files (relative path -> content) to a temporary
// directory and runs the app on it with a background context. A file named
// "station.yaml" is used as the station inventory; every .hcl file under
// "plan/" forms the plan.
func RunIntegrationTest(t *testing.T, files map[string]string, mutate ...func(*app.Config)) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, mutate...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, mutate ...func(*app.Config)) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	planDir := filepath.Join(tmpDir, "plan")
	require.NoError(t, os.MkdirAll(planDir, 0o755))
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := app.Config{
		PlanPath:  planDir,
		OutDir:    filepath.Join(tmpDir, "out"),
		LogLevel:  "debug",
		LogFormat: "text",
	}
	if _, ok := files["station.yaml"]; ok {
		cfg.StationPath = filepath.Join(tmpDir, "station.yaml")
	}
	for _, m := range mutate {
		m(&cfg)
	}

	logBuffer := &SafeBuffer{}
	res := &HarnessResult{Dir: tmpDir}
	defer func() {
		res.LogOutput = logBuffer.String()
		if os.Getenv("SWEEPGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.LogOutput)
		}
	}()

	appConfig, err := app.NewConfig(cfg)
	if err != nil {
		res.Err = err
		return res
	}
	res.App, res.Err = app.NewApp(logBuffer, appConfig, hclplan.NewLoader())
	if res.Err != nil {
		return res
	}
	res.Result, res.Err = res.App.Run(ctx)
	return res
}
