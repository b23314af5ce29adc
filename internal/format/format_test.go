package format

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/sweepgrid/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newNestedSet builds x_set (2,), y_set (2,3), m (2,3) and a 1-D reading r (2,).
func newNestedSet(t *testing.T) *data.Set {
	t.Helper()
	x, err := data.NewArray("x_set", []int{2})
	require.NoError(t, err)
	x.IsSetpoint = true
	x.Label = "x"
	x.SetArrays = []*data.Array{x}

	y, err := data.NewArray("y_set", []int{2, 3})
	require.NoError(t, err)
	y.IsSetpoint = true
	y.Label = "y"
	y.SetArrays = []*data.Array{x, y}

	m, err := data.NewArray("m", []int{2, 3})
	require.NoError(t, err)
	m.Label = "m"
	m.SetArrays = []*data.Array{x, y}

	r, err := data.NewArray("r", []int{2})
	require.NoError(t, err)
	r.Label = "r"
	r.SetArrays = []*data.Array{x}

	for i := 0; i < 2; i++ {
		require.NoError(t, x.Set([]int{i}, float64(i)))
		require.NoError(t, y.Set([]int{i}, 10, 20, 30))
		require.NoError(t, r.Set([]int{i}, float64(100+i)))
	}
	require.NoError(t, m.Set([]int{0}, 1, 2, 3))

	set := data.NewSet()
	for _, a := range []*data.Array{x, y, m, r} {
		require.NoError(t, set.Add(a))
	}
	set.ID = "run-1"
	set.Label = "nested"
	return set
}

func TestGroupArrays(t *testing.T) {
	groups := GroupArrays(newNestedSet(t))
	require.Len(t, groups, 2)

	assert.Equal(t, "x_set_y_set", groups[0].Name)
	assert.Equal(t, []int{2, 3}, groups[0].Dims())
	require.Len(t, groups[0].Data, 1)
	assert.Equal(t, "m", groups[0].Data[0].Name)

	assert.Equal(t, "x_set", groups[1].Name)
	require.Len(t, groups[1].Data, 1)
	assert.Equal(t, "r", groups[1].Data[0].Name)
}

func TestGNUPlotWrite(t *testing.T) {
	dir := t.TempDir()
	set := newNestedSet(t)

	files, err := NewGNUPlot().Write(context.Background(), set, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"x_set_y_set.dat", "x_set.dat"}, files)

	raw, err := os.ReadFile(filepath.Join(dir, "x_set_y_set.dat"))
	require.NoError(t, err)
	want := strings.Join([]string{
		"# x_set\ty_set\tm",
		`# "x"` + "\t" + `"y"` + "\t" + `"m"`,
		"# 2\t3",
		"0\t10\t1",
		"0\t20\t2",
		"0\t30\t3",
		"",
		"1\t10\tnan",
		"1\t20\tnan",
		"1\t30\tnan",
		"",
	}, "\n")
	assert.Equal(t, want, string(raw))

	// Everything written is marked as saved.
	m, _ := set.Get("m")
	assert.Equal(t, 2, m.LastSavedIndex())
	_, _, pending := m.ModifiedRange()
	assert.False(t, pending)
}

func TestWriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	set := newNestedSet(t)

	name, err := WriteSnapshot(set, dir, map[string]string{"station": "bench"})
	require.NoError(t, err)
	assert.Equal(t, SnapshotFile, name)

	raw, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var doc struct {
		ID      string `json:"id"`
		Label   string `json:"label"`
		Station string `json:"station"`
		Arrays  []struct {
			Name       string   `json:"name"`
			Dims       []int    `json:"dims"`
			IsSetpoint bool     `json:"is_setpoint"`
			SetArrays  []string `json:"set_arrays"`
			Filled     int      `json:"filled"`
		} `json:"arrays"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "run-1", doc.ID)
	assert.Equal(t, "nested", doc.Label)
	assert.Equal(t, "bench", doc.Station)
	require.Len(t, doc.Arrays, 4)
	assert.Equal(t, "m", doc.Arrays[2].Name)
	assert.Equal(t, []int{2, 3}, doc.Arrays[2].Dims)
	assert.Equal(t, []string{"x_set", "y_set"}, doc.Arrays[2].SetArrays)
	assert.Equal(t, 3, doc.Arrays[2].Filled)
	assert.True(t, doc.Arrays[0].IsSetpoint)
}
