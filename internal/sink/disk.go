package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/data"
	"github.com/specialistvlad/sweepgrid/internal/format"
	"github.com/specialistvlad/sweepgrid/internal/location"
)

// Disk writes collections as GNUPlot text files plus a snapshot under a base
// directory, at a location generated by Formatter.
//
// A location hint on the collection (data.Set.Location) replaces the
// formatter: a hint containing "{" is used as a format string, any other hint
// is taken literally.
type Disk struct {
	Root      location.Disk
	Formatter *location.Formatter
	Format    *format.GNUPlot
	// Extra is copied into every snapshot.
	Extra map[string]string
}

// NewDisk returns a Disk sink rooted at base with the default location format.
func NewDisk(base, locationFormat string) *Disk {
	return &Disk{
		Root:      location.Disk{Base: base},
		Formatter: location.New(locationFormat, nil),
		Format:    format.NewGNUPlot(),
	}
}

func (d *Disk) Write(ctx context.Context, set *data.Set, label string) (Handle, error) {
	loc, err := d.location(set.Location, label)
	if err != nil {
		return Handle{}, err
	}
	dir, err := d.Root.MkdirAll(loc)
	if err != nil {
		return Handle{}, err
	}
	set.Location = loc

	files, err := d.Format.Write(ctx, set, dir)
	if err != nil {
		return Handle{Location: loc, Dir: dir, Files: files}, err
	}
	snap, err := format.WriteSnapshot(set, dir, d.Extra)
	if err != nil {
		return Handle{Location: loc, Dir: dir, Files: files}, err
	}
	files = append(files, snap)

	ctxlog.FromContext(ctx).Info("Wrote result collection.", "location", loc, "files", len(files))
	return Handle{Location: loc, Dir: dir, Files: files}, nil
}

func (d *Disk) location(hint, label string) (string, error) {
	record := map[string]string{}
	if label != "" {
		record["name"] = label
	}
	f := d.Formatter
	if hint != "" {
		if !strings.Contains(hint, "{") {
			return hint, nil
		}
		f = location.New(hint, d.Formatter.Record)
	}
	loc, err := f.Location(d.Root, record)
	if err != nil {
		return "", fmt.Errorf("choose location: %w", err)
	}
	return loc, nil
}
