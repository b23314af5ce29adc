package format

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/sweepgrid/internal/data"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// SnapshotFile is the name of the metadata document written next to the data files.
const SnapshotFile = "snapshot.json"

// Snapshot builds the metadata document of a result collection as a cty value.
// extra entries are added as top-level string attributes.
func Snapshot(set *data.Set, extra map[string]string) cty.Value {
	arrays := make([]cty.Value, 0, set.Len())
	for _, a := range set.Arrays() {
		dims := make([]cty.Value, 0, a.Rank())
		for _, d := range a.Dims() {
			dims = append(dims, cty.NumberIntVal(int64(d)))
		}
		setNames := make([]cty.Value, 0, len(a.SetArrays))
		for _, s := range a.SetArrays {
			setNames = append(setNames, cty.StringVal(s.Name))
		}
		arrays = append(arrays, cty.ObjectVal(map[string]cty.Value{
			"name":        cty.StringVal(a.Name),
			"label":       cty.StringVal(a.Label),
			"unit":        cty.StringVal(a.Unit),
			"is_setpoint": cty.BoolVal(a.IsSetpoint),
			"dims":        listOrEmpty(dims, cty.Number),
			"set_arrays":  listOrEmpty(setNames, cty.String),
			"filled":      cty.NumberIntVal(int64(a.Filled())),
		}))
	}

	attrs := map[string]cty.Value{
		"id":       cty.StringVal(set.ID),
		"label":    cty.StringVal(set.Label),
		"location": cty.StringVal(set.Location),
	}
	if len(arrays) > 0 {
		attrs["arrays"] = cty.ListVal(arrays)
	} else {
		attrs["arrays"] = cty.EmptyTupleVal
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, reserved := attrs[k]; !reserved {
			attrs[k] = cty.StringVal(extra[k])
		}
	}
	return cty.ObjectVal(attrs)
}

// WriteSnapshot writes the snapshot of set as JSON into dir.
func WriteSnapshot(set *data.Set, dir string, extra map[string]string) (string, error) {
	val := Snapshot(set, extra)
	buf, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SnapshotFile), buf, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return SnapshotFile, nil
}

func listOrEmpty(vals []cty.Value, elem cty.Type) cty.Value {
	if len(vals) == 0 {
		return cty.ListValEmpty(elem)
	}
	return cty.ListVal(vals)
}
