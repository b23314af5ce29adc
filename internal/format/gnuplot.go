package format

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/data"
)

// GNUPlot writes each group as a gnuplot-compatible text file:
//
//	# p1_set	dci_ChanA_temperature
//	# "p1"	"temperature"
//	# 21
//	-10	0
//	...
//
// Rows follow row-major order. A blank line separates blocks whenever an outer
// index advances, which gnuplot reads as separate scan lines.
type GNUPlot struct {
	Extension string
	Separator string
}

// NewGNUPlot returns a writer with ".dat" files and tab separators.
func NewGNUPlot() *GNUPlot {
	return &GNUPlot{Extension: ".dat", Separator: "\t"}
}

// Write writes one file per group into dir and returns the file names
// relative to dir.
func (g *GNUPlot) Write(ctx context.Context, set *data.Set, dir string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var files []string
	for _, grp := range GroupArrays(set) {
		name := grp.Name + g.Extension
		if err := g.writeGroup(filepath.Join(dir, name), grp); err != nil {
			return files, fmt.Errorf("write group %s: %w", grp.Name, err)
		}
		for _, a := range grp.SetArrays {
			a.MarkSaved()
		}
		for _, a := range grp.Data {
			a.MarkSaved()
		}
		logger.Debug("Wrote data file.", "file", name, "arrays", len(grp.SetArrays)+len(grp.Data))
		files = append(files, name)
	}
	return files, nil
}

func (g *GNUPlot) writeGroup(path string, grp Group) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)

	all := append(append([]*data.Array{}, grp.SetArrays...), grp.Data...)
	names := make([]string, len(all))
	labels := make([]string, len(all))
	for i, a := range all {
		names[i] = a.Name
		labels[i] = strconv.Quote(a.Label)
	}
	dims := grp.Dims()
	dimStr := make([]string, len(dims))
	for i, d := range dims {
		dimStr[i] = strconv.Itoa(d)
	}
	fmt.Fprintf(w, "# %s\n", strings.Join(names, g.Separator))
	fmt.Fprintf(w, "# %s\n", strings.Join(labels, g.Separator))
	fmt.Fprintf(w, "# %s\n", strings.Join(dimStr, g.Separator))

	values := make([][]float64, len(all))
	for i, a := range all {
		values[i] = a.Values()
	}

	// strides[k] is the number of group elements per step of axis k.
	strides := make([]int, len(dims))
	total := 1
	for k := len(dims) - 1; k >= 0; k-- {
		strides[k] = total
		total *= dims[k]
	}

	row := make([]string, len(all))
	innermost := dims[len(dims)-1]
	for flat := 0; flat < total; flat++ {
		if flat > 0 && len(dims) > 1 && flat%innermost == 0 {
			w.WriteString("\n")
		}
		for i, a := range all {
			// Arrays of lower rank are indexed by the leading axes only.
			off := flat / strides[a.Rank()-1]
			row[i] = formatValue(values[i][off])
		}
		w.WriteString(strings.Join(row, g.Separator))
		w.WriteString("\n")
	}
	return w.Flush()
}

func formatValue(v float64) string {
	if data.IsUnset(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
