package app_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/sweepgrid/internal/app"
	"github.com/specialistvlad/sweepgrid/internal/data"
	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/hclplan"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
	"github.com/specialistvlad/sweepgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDefaultMeasurementOverChannels(t *testing.T) {
	res := testutil.RunIntegrationTest(t, map[string]string{
		"plan/main.hcl": `
run { label = "channels" }
loop "dci.A.temperature" { values = range(0, 20, 1) }
`,
	})
	require.NoError(t, res.Err)
	require.False(t, res.Result.Aborted)

	assert.Equal(t, 7, res.Result.Data.Len())
	testutil.AssertArrayDims(t, res, "dci_ChanA_temperature_set", 21)
	for _, ch := range []string{"A", "B", "C", "D", "E", "F"} {
		testutil.AssertArrayDims(t, res, "dci_Chan"+ch+"_temperature", 21)
	}

	set, _ := res.Result.Data.Get("dci_ChanA_temperature_set")
	assert.Equal(t, 20.0, set.At(20))
	meas, _ := res.Result.Data.Get("dci_ChanA_temperature")
	assert.Equal(t, set.Values(), meas.Values())

	h := res.Result.Handle
	require.NotEmpty(t, h.Files)
	assert.Contains(t, h.Files, "snapshot.json")
	assert.FileExists(t, filepath.Join(h.Dir, "snapshot.json"))
	assert.Contains(t, h.Location, "channels")
	assert.Len(t, res.App.Results().Sets(), 1)
	testutil.AssertLogged(t, res, "Starting sweep run.", "Monitor event.")
}

func TestRunNestedLoopFromStationFile(t *testing.T) {
	res := testutil.RunIntegrationTest(t, map[string]string{
		"station.yaml": `
instruments:
  dci:
    type: dummy_channel
    channels: [A, B]
  gate:
    type: parameters
    parameters:
      - name: voltage
        unit: V
        min: -1
        max: 1
`,
		"plan/main.hcl": `
loop "gate.voltage" {
  values = linspace(-1, 1, 5)
  loop "dci.B.temperature" {
    values = range(0, 3, 1)
    each   = [measure("dci.B.temperature"), wait(0)]
  }
}
`,
	}, func(c *app.Config) { c.Location = "fixed/run" })
	require.NoError(t, res.Err)

	testutil.AssertArrayDims(t, res, "voltage_set", 5)
	testutil.AssertArrayDims(t, res, "temperature_set", 5, 4)
	testutil.AssertArrayDims(t, res, "temperature", 5, 4)
	assert.Equal(t, "fixed/run", res.Result.Handle.Location)
	assert.DirExists(t, filepath.Join(res.OutDir(), "fixed", "run"))

	arr, _ := res.Result.Data.Get("temperature")
	assert.Equal(t, 3.0, arr.At(4, 3))
	assert.False(t, data.IsUnset(arr.At(0, 0)))
}

func TestRunConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
		msg     string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"plan/main.hcl": `loop "dci.A.temperature" {`},
			wantErr: errdefs.ErrConfiguration,
			msg:     "failed to parse",
		},
		{
			name:    "unknown reference",
			files:   map[string]string{"plan/main.hcl": `loop "dci.Z.temperature" { values = [1] }`},
			wantErr: instrument.ErrNoSuchAttribute,
			msg:     "Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testutil.RunIntegrationTest(t, tt.files)
			require.Error(t, res.Err)
			assert.ErrorIs(t, res.Err, tt.wantErr)
			assert.Contains(t, res.Err.Error(), tt.msg)
		})
	}
}

func TestRunAbortedByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := testutil.RunIntegrationTestWithContext(ctx, t, map[string]string{
		"plan/main.hcl": `loop "dci.A.temperature" { values = range(0, 20, 1) }`,
	})
	require.NoError(t, res.Err)
	require.True(t, res.Result.Aborted)
	arr, _ := res.Result.Data.Get("dci_ChanB_temperature")
	assert.True(t, data.IsUnset(arr.At(20)))
}

func TestRunUploadsFiles(t *testing.T) {
	var mu sync.Mutex
	uploaded := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploaded[r.URL.Path] = len(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := testutil.RunIntegrationTest(t, map[string]string{
		"plan/main.hcl": `loop "dci.A.temperature" { values = [1, 2, 3] }`,
	}, func(c *app.Config) {
		c.UploadURL = srv.URL + "/bucket"
		c.Location = "upload/one"
	})
	require.NoError(t, res.Err)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, uploaded, len(res.Result.Handle.Files))
	assert.Contains(t, uploaded, "/bucket/upload/one/snapshot.json")
	assert.Len(t, res.Result.Handle.URLs, len(res.Result.Handle.Files))
}

func TestPlanDryRunTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "main.hcl")
	require.NoError(t, os.WriteFile(planPath, []byte(`
loop "dci.A.temperature" {
  values = range(0, 10, 1)
  each   = ["dci.A.dummy_array_parameter"]
}
`), 0o644))

	cfg, err := app.NewConfig(app.Config{PlanPath: planPath, OutDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	a, err := app.NewApp(io.Discard, cfg, hclplan.NewLoader())
	require.NoError(t, err)

	_, set, err := a.Plan(context.Background())
	require.NoError(t, err)
	arr, ok := set.Get("dummy_array_parameter")
	require.True(t, ok)
	assert.Equal(t, []int{11, 5}, arr.Dims())
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}
